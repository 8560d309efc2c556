package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atlas-foundry/akn-numbering-go-sdk/fragment"
	"github.com/atlas-foundry/akn-numbering-go-sdk/numbering"
)

func (a *app) articlesCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "articles FILE",
		Short: "Renumber the articles of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.processor()
			if err != nil {
				return err
			}
			in, err := a.readInput(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := p.RenumberArticles(in, lang)
			if err != nil {
				return err
			}
			return a.writeOutput(cmd, out)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "Document language")
	return cmd
}

func (a *app) recitalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recitals FILE",
		Short: "Renumber the recitals of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.processor()
			if err != nil {
				return err
			}
			in, err := a.readInput(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := p.RenumberRecitals(in)
			if err != nil {
				return err
			}
			return a.writeOutput(cmd, out)
		},
	}
}

type fragmentOp func(numbering.Processor, string) (string, error)

func (a *app) importedCmd(use, short string, op fragmentOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " FILE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.processor()
			if err != nil {
				return err
			}
			in, err := a.readInput(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := op(p, string(in))
			if err != nil {
				return err
			}
			return a.writeOutput(cmd, []byte(out))
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	var format, kind, id string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Convert a Markdown or Org text into a fragment and renumber it as imported",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := fragment.ParseKind(kind)
			if err != nil {
				return err
			}
			p, err := a.processor()
			if err != nil {
				return err
			}
			in, err := a.readInput(cmd, args[0])
			if err != nil {
				return err
			}
			frag, err := fragment.FromText(string(in), fragment.TextFormat(format), k, id)
			if err != nil {
				return fmt.Errorf("import %s as %s: %w", args[0], format, err)
			}
			var out string
			if k == fragment.KindRecital {
				out, err = p.RenumberImportedRecital(frag)
			} else {
				out, err = p.RenumberImportedArticle(frag)
			}
			if err != nil {
				return err
			}
			return a.writeOutput(cmd, []byte(out))
		},
	}
	cmd.Flags().StringVar(&format, "format", string(fragment.FormatMarkdown), "Source text format (markdown, org)")
	cmd.Flags().StringVar(&kind, "kind", string(fragment.KindArticle), "Fragment kind (article, recital)")
	cmd.Flags().StringVar(&id, "id", "", "xml:id of the generated fragment")
	return cmd
}

func (a *app) contextsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List the configured editing contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range a.registry.List() {
				mode := "?"
				if p, err := a.registry.Lookup(name); err == nil {
					if r, ok := p.(*numbering.Renumberer); ok {
						mode = r.Mode().String()
					}
				}
				marker := " "
				if strings.EqualFold(name, a.cfg.DefaultContext) {
					marker = "*"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, name, mode); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
