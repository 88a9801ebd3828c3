package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dyluth/tablero/internal/config"
	"github.com/dyluth/tablero/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// StateDir holds the local cache of a project
const StateDir = ".tablero"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Params fill the tablero.yml template
type Params struct {
	Workspace string
	RedisURL  string
	Platforms []string
	Items     []string
	Statuses  []config.StatusOption
}

// DefaultParams returns the main board catalog for workspace.
func DefaultParams(workspace string) Params {
	if workspace == "" {
		workspace = config.DefaultWorkspace
	}
	catalog := config.DefaultCatalog()
	return Params{
		Workspace: workspace,
		RedisURL:  config.DefaultRedisURL,
		Platforms: catalog.Platforms,
		Items:     catalog.Items,
		Statuses:  catalog.Statuses,
	}
}

// Initialize creates tablero.yml and the local state directory inside dir.
// If force is true, an existing tablero.yml and cache are removed first.
func Initialize(dir string, params Params, force bool) error {
	if force {
		if err := handleForce(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles(params)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, StateDir), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", StateDir, err)
	}

	if err := writeFiles(dir, files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

// handleForce removes existing files if --force was specified
func handleForce(dir string) error {
	cfg := filepath.Join(dir, config.DefaultFilename)
	if _, err := os.Stat(cfg); err == nil {
		printer.Warning("Removing existing %s...\n", config.DefaultFilename)
		if err := os.Remove(cfg); err != nil {
			return fmt.Errorf("failed to remove %s: %w", config.DefaultFilename, err)
		}
	}

	state := filepath.Join(dir, StateDir)
	if info, err := os.Stat(state); err == nil && info.IsDir() {
		printer.Warning("Removing existing %s/ directory...\n", StateDir)
		if err := os.RemoveAll(state); err != nil {
			return fmt.Errorf("failed to remove %s/ directory: %w", StateDir, err)
		}
	}

	return nil
}

// getTemplateFiles renders every template file
func getTemplateFiles(params Params) ([]FileInfo, error) {
	raw, err := templatesFS.ReadFile("templates/tablero.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read tablero.yml template: %w", err)
	}

	tmpl, err := template.New("tablero.yml").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse tablero.yml template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("failed to render tablero.yml: %w", err)
	}

	return []FileInfo{
		{Path: config.DefaultFilename, Content: buf.Bytes(), Permissions: 0644},
		// The cache is per machine and never committed
		{Path: filepath.Join(StateDir, ".gitignore"), Content: []byte("*\n"), Permissions: 0644},
	}, nil
}

// writeFiles writes all files relative to dir
func writeFiles(dir string, files []FileInfo) error {
	for _, file := range files {
		path := filepath.Join(dir, file.Path)
		if err := os.WriteFile(path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads the written tablero.yml through the normal config path
func validateCreatedFiles(dir string) error {
	if _, err := config.Load(filepath.Join(dir, config.DefaultFilename)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultFilename, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess(params Params) {
	printer.Success("Initialized board '%s'\n", params.Workspace)
	printer.Println("\nCreated:")
	printer.Printf("  ✓ %s\n", config.DefaultFilename)
	printer.Printf("  ✓ %s/\n", StateDir)
	printer.Println("\nNext steps:")
	printer.Println("  1. Point store.redis_url at a shared Redis, or run 'tablero store up'")
	printer.Println("  2. Adjust the catalog in tablero.yml if your board differs")
	printer.Println("  3. Run 'tablero serve' to start a live session")
}
