// Command mirror loads HTML fragments into a parchment model tree, edits
// them through the model, and saves and loads snapshots of them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jrhy/parchment"
	"github.com/jrhy/parchment/dom"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	storeFlag  string
	logLevel   string
	writeBack  bool
	inserts    []string
	deletes    []string
	formats    []string

	cfg    Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "mirror",
	Short:         "Mirror HTML fragments in a parchment model tree",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("store") {
			cfg.Store = storeFlag
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		logger, err = cfg.Logger()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <file.html>",
	Short: "Print the model tree of a fragment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := open(args[0])
		if err != nil {
			return err
		}
		return parchment.Dump(cmd.OutOrStdout(), m.root)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <file.html>",
	Short: "Apply edits through the model and print the resulting HTML",
	Long: `Apply edits through the model and print the resulting HTML.

Inserts are applied first, then deletes, then formats, each in the order
given. Indexes are in content units of the whole fragment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		edits, err := parseEdits(inserts, deletes, formats)
		if err != nil {
			return err
		}
		m, err := open(args[0])
		if err != nil {
			return err
		}
		for _, e := range edits {
			if err = e.apply(m.root); err != nil {
				return err
			}
		}
		if err = parchment.Verify(m.root); err != nil {
			return fmt.Errorf("model out of sync after edits: %w", err)
		}
		out := dom.InnerHTML(m.host)
		if writeBack {
			return os.WriteFile(args[0], []byte(out), 0o644)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <file.html>",
	Short: "Store a snapshot of a fragment and print its link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := open(args[0])
		if err != nil {
			return err
		}
		store, err := cfg.Persist()
		if err != nil {
			return err
		}
		link, err := m.root.Save(context.Background(), store, parchment.NewNodeCache(cfg.CacheSize))
		if err != nil {
			return err
		}
		logger.Info("saved snapshot", zap.String("file", args[0]), zap.String("link", link))
		_, err = fmt.Fprintln(cmd.OutOrStdout(), link)
		return err
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <link>",
	Short: "Print the HTML of a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cfg.Persist()
		if err != nil {
			return err
		}
		m, err := newMirror(nil)
		if err != nil {
			return err
		}
		if err = m.root.Load(context.Background(), store, parchment.NewNodeCache(cfg.CacheSize), args[0]); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), dom.InnerHTML(m.host))
		return err
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file.html>",
	Short: "Check that the model tree of a fragment mirrors it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := open(args[0])
		if err != nil {
			return err
		}
		if err = parchment.Verify(m.root); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok, %d content units, %d bound nodes\n",
			m.root.Length(), m.root.Registry().Bound())
		return err
	},
}

// mirror is a fragment with its model tree.
type mirror struct {
	doc  *dom.Document
	host *dom.Node
	root *parchment.Root
}

func newMirror(host *dom.Node) (*mirror, error) {
	m := &mirror{doc: dom.NewDocument()}
	if host == nil {
		host = m.doc.Element("div")
	}
	m.host = host
	return m, m.attach()
}

func (m *mirror) attach() error {
	reg, err := parchment.StandardRegistry(parchment.RegistryConfig{
		Factory:         m.doc,
		DefinitionCache: parchment.NewDefinitionCache(cfg.CacheSize),
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	m.root, err = parchment.NewRoot(parchment.Config{
		Registry:   reg,
		Observable: m.doc,
		Childless:  parchment.BlockKind,
		Logger:     logger,
	}, m.host)
	return err
}

func open(path string) (*mirror, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m := &mirror{doc: dom.NewDocument()}
	m.host, err = m.doc.ParseFragment(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err = m.attach(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("opened", zap.String("file", path), zap.Int("length", m.root.Length()))
	return m, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mirror.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Snapshot store: a directory or s3://bucket/prefix")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level")

	editCmd.Flags().StringArrayVar(&inserts, "insert", nil, "Insert text, as index:text")
	editCmd.Flags().StringArrayVar(&deletes, "delete", nil, "Delete a range, as index:length")
	editCmd.Flags().StringArrayVar(&formats, "format", nil, "Format a range, as index:length:name[=value]")
	editCmd.Flags().BoolVarP(&writeBack, "write", "w", false, "Write the result back to the file")

	rootCmd.AddCommand(renderCmd, editCmd, saveCmd, loadCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mirror:", err)
		os.Exit(1)
	}
}
