package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-foundry/akn-numbering-go-sdk/autonum"
	"github.com/atlas-foundry/akn-numbering-go-sdk/internal/config"
	"github.com/atlas-foundry/akn-numbering-go-sdk/internal/logging"
	"github.com/atlas-foundry/akn-numbering-go-sdk/numbering"
)

// app carries the state shared by every sub-command after PersistentPreRunE.
type app struct {
	configPath string
	context    string
	output     string
	verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	registry *numbering.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "aknnum",
		Short: "Renumber articles and recitals in Akoma Ntoso XML",
		Long: `aknnum applies the numbering policy of an editing context to a document
or to a fragment imported from another document.

Manual contexts stamp a placeholder number on imported fragments and leave
native numbering untouched. Automatic contexts number the whole document
sequentially.

FILE may be "-" to read from standard input.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "Configuration file")
	root.PersistentFlags().StringVarP(&a.context, "context", "c", "", "Editing context (default: default_context from the configuration)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "", "Write the result to a file instead of stdout")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		a.articlesCmd(),
		a.recitalsCmd(),
		a.importedCmd("imported-article", "Stamp the article placeholder on an imported article", (numbering.Processor).RenumberImportedArticle),
		a.importedCmd("imported-recital", "Stamp the recital placeholder on an imported recital", (numbering.Processor).RenumberImportedRecital),
		a.importCmd(),
		a.contextsCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration %s: %w", a.configPath, err)
	}
	logger, err := logging.New(cfg.Logging, a.verbose)
	if err != nil {
		return err
	}
	post := autonum.Sequential{NumTag: cfg.Navigation.Tag, Logger: logger.Named("autonum")}
	reg, err := cfg.Registry(post, logger.Named("numbering"))
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.registry = cfg, logger, reg
	return nil
}

// processor resolves the --context flag, falling back to the configured default.
func (a *app) processor() (numbering.Processor, error) {
	ctx := a.context
	if ctx == "" {
		ctx = a.cfg.DefaultContext
	}
	a.logger.Debug("using editing context", zap.String("context", ctx))
	return a.registry.Lookup(ctx)
}

func (a *app) readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func (a *app) writeOutput(cmd *cobra.Command, data []byte) error {
	if a.output == "" {
		_, err := io.Copy(cmd.OutOrStdout(), bytes.NewReader(data))
		return err
	}
	if err := os.WriteFile(a.output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", a.output, err)
	}
	a.logger.Info("wrote result", zap.String("path", a.output), zap.Int("bytes", len(data)))
	return nil
}
