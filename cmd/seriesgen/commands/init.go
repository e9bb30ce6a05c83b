package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/config"
	"git.home.luguber.info/inful/seriesgen/internal/render"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force     bool   `help:"Overwrite existing files"`
	Templates string `name:"templates" help:"Directory for the starter templates" default:"layouts"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	return RunInit(afero.NewOsFs(), root.Config, i.Templates, i.Force)
}

// RunInit writes the example configuration and the starter templates. The
// template directory is resolved relative to the configuration file.
func RunInit(fsys afero.Fs, configPath, templatesDir string, force bool) error {
	fmt.Println("Initializing seriesgen project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}

	dir := templatesDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(configPath), dir)
	}
	written, err := render.WriteDefaultTemplates(fsys, dir, force)
	if err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	for _, name := range written {
		fmt.Printf("Wrote template %s\n", name)
	}
	fmt.Println("initialized successfully")
	return nil
}
