package config

import "strings"

// DefaultPlatforms are the drilling platforms of the main board.
var DefaultPlatforms = []string{"PAE", "CME-II", "GRID", "GERSEMI", "CME-I", "NJORD", "GALAR", "RIG-702", "RIG-703"}

// DefaultItems are the equipment rows of the main board.
var DefaultItems = []string{
	"CABEZAL",
	"FLUIDOS",
	"MOTOR DE FONDO / RSS",
	"GWD-LWD-MWD",
	"AMPLIADOR",
	"REGISTROS ELÉCTRICOS",
	"LANDING STRING",
	"EQUIPO DE APRIETE-CRT",
	"TUBERÍA DE REVESTIMIENTO",
	"MPD",
	"COMBINACIONES",
	"CABEZA DE CEMENTAR",
	"ZAPATA PERFORADORA",
	"COPLES",
	"TAPONES DE DESPLAZAMIENTO",
	"CENTRADORES",
	"COLGADOR",
	"RETENEDOR",
	"CUCHARA",
	"KIT DE PESCA",
	"SARTA DE LIMPIEZA",
	"TUBERÍA DE PRODUCCIÓN",
	"EQUIPO DE APRIETE",
	"FLUIDOS DE TERMINACIÓN",
	"EMPACADOR",
	"MAV",
	"MANDRILES",
	"VÁLVULAS",
	"TAPÓN CERÁMICO",
	"CAMISA DE CIRCULACIÓN",
	"CEDAZOS",
	"EQUIPO DE AFORO",
	"TUBERÍA FLEXIBLE",
	"SERV. DE ESTIMULACIÓN",
}

// DefaultStatuses returns the status palette in display order.
func DefaultStatuses() []StatusOption {
	return []StatusOption{
		{Key: "none", Label: "Sin estatus"},
		{Key: "green", Label: "Verde", Color: "green"},
		{Key: "red", Label: "Rojo", Color: "red"},
		{Key: "yellow", Label: "Amarillo", Color: "yellow"},
		{Key: "blue", Label: "Azul", Color: "blue"},
	}
}

// DefaultCatalog returns a fresh copy of the main board catalog.
func DefaultCatalog() *CatalogConfig {
	return &CatalogConfig{
		Staged:    true,
		Platforms: append([]string(nil), DefaultPlatforms...),
		Items:     append([]string(nil), DefaultItems...),
		Statuses:  DefaultStatuses(),
	}
}

// ResolveItem returns the catalog spelling of an item, matching case-insensitively.
func (c *CatalogConfig) ResolveItem(name string) (string, bool) {
	return resolve(c.Items, name)
}

// ResolvePlatform returns the catalog spelling of a platform, matching case-insensitively.
func (c *CatalogConfig) ResolvePlatform(name string) (string, bool) {
	return resolve(c.Platforms, name)
}

// ResolveStatus finds a status by key or by label, case-insensitively.
func (c *CatalogConfig) ResolveStatus(s string) (StatusOption, bool) {
	for _, opt := range c.Statuses {
		if strings.EqualFold(opt.Key, s) || strings.EqualFold(opt.Label, s) {
			return opt, true
		}
	}
	return StatusOption{}, false
}

func resolve(names []string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, n := range names {
		if n == name {
			return n, true
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}
