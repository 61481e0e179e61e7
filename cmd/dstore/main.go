package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/dstore/pkg/backend/memory"
	"github.com/cuemby/dstore/pkg/log"
	"github.com/cuemby/dstore/pkg/manager"
	"github.com/cuemby/dstore/pkg/object"
	"github.com/cuemby/dstore/pkg/txn"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dstore",
	Short:   "dstore - a distributed shared-object store with optimistic MVCC",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"dstore version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "dstore.yaml", "Path to config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(demoCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the object currently stored by the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		be, closer, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		mgr, err := manager.New(be)
		if err != nil {
			return err
		}
		defer mgr.Close()

		root, err := mgr.Read(cmd.Context(), nil)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d\n%s\n", mgr.Stats().Version, describe(root))
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the stored object with a list of lines read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		be, closer, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		mgr, err := manager.New(be)
		if err != nil {
			return err
		}
		defer mgr.Close()

		var elems []any
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			elems = append(elems, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return err
		}

		version, err := mgr.Write(cmd.Context(), object.NewDList(elems))
		if err != nil {
			return err
		}
		fmt.Printf("wrote version=%d (%d elements)\n", version, len(elems))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the configured backend and print its version whenever it changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		be, closer, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		mgr, err := manager.New(be)
		if err != nil {
			return err
		}
		defer mgr.Close()

		last := mgr.Stats().Version
		fmt.Printf("watching, starting at version=%d\n", last)
		for {
			root, err := mgr.Refresh(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if v := mgr.Stats().Version; v != last {
				last = v
				fmt.Printf("version=%d\n%s\n", v, describe(root))
			}
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(time.Second):
			}
		}
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a short, self-contained demonstration of a transaction, a second manager's append, and a refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store := memory.NewStore()
		store.Start()
		defer store.Stop()

		mgr, err := manager.New(memory.NewBackend(store), manager.WithRetries(5))
		if err != nil {
			return err
		}
		defer mgr.Close()

		if _, err := mgr.Write(ctx, object.NewDList([]any{"a", "b", "c"})); err != nil {
			return err
		}

		root, err := mgr.Read(ctx, nil)
		if err != nil {
			return err
		}
		list := root.(*object.DList)
		fmt.Printf("initial: %s\n", describe(list))

		err = mgr.Transactional(ctx, func(tr *txn.Transaction) error {
			list.Append("d")
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("after append: %s\n", describe(list))

		second, err := manager.New(memory.NewBackend(store), manager.WithRetries(5))
		if err != nil {
			return err
		}
		defer second.Close()
		otherRoot, err := second.Read(ctx, nil)
		if err != nil {
			return err
		}
		otherList := otherRoot.(*object.DList)
		otherList.Append("from another manager")
		fmt.Printf("after concurrent append from a second manager: %s\n", describe(otherList))

		final, err := mgr.Refresh(ctx, nil)
		if err != nil {
			return err
		}
		fmt.Printf("refreshed first manager sees: %s\n", describe(final))
		return nil
	},
}

func describe(v any) string {
	list, ok := v.(*object.DList)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%v", list.Slice())
}
