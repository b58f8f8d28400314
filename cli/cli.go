/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package cli contains the command tree of the mpk binary.
*/
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/mpk/config"
	"devt.de/krotik/mpk/db"
	"devt.de/krotik/mpk/db/types"
	"devt.de/krotik/mpk/engine"
	"devt.de/krotik/mpk/flate"
	"devt.de/krotik/mpk/ingest"
	"devt.de/krotik/mpk/kv"
	"devt.de/krotik/mpk/mk/comp"
	"devt.de/krotik/mpk/mk/vm"
	"devt.de/krotik/mpk/ot"
	"github.com/spf13/cobra"
)

/*
cfgPath is the path of the configuration file.
*/
var cfgPath string

/*
New builds the mpk command tree.
*/
func New() *cobra.Command {
	root := &cobra.Command{
		Use:           "mpk",
		Short:         "media production kit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.ConfigFile,
		"configuration file")

	root.AddCommand(newInitCommand())
	root.AddCommand(newDbCommand())
	root.AddCommand(newEngineCommand())
	root.AddCommand(newEvalCommand())
	root.AddCommand(newPackCommand())
	root.AddCommand(newUnpackCommand())
	root.AddCommand(newOtCommand())
	root.AddCommand(newStatusCommand())

	return root
}

/*
loadConfig loads the repository configuration.
*/
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %v (run mpk init first): %v", cfgPath, err)
	}

	return cfg, nil
}

/*
openGraph opens the repository store and graph manager.
*/
func openGraph(cfg *config.Config) (*db.Manager, error) {
	mode := kv.ModeLowSpace
	if cfg.Db.Mode == "fast" {
		mode = kv.ModeHighThroughput
	}

	store, err := kv.Open(cfg.Db.Path, &kv.Options{
		Mode:        mode,
		Compression: cfg.Db.Compression,
		Level:       cfg.Db.Level,
	})
	if err != nil {
		return nil, err
	}

	return db.NewManager(store)
}

/*
newInitCommand builds the init command.
*/
func newInitCommand() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "initialize a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default(root)

			if err := cfg.Build(); err != nil {
				return err
			}

			// Touch the store so the repository is complete

			gm, err := openGraph(cfg)
			if err != nil {
				return err
			}
			gm.Store().Close()

			if err := cfg.Write(filepath.Join(root, config.ConfigFile)); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "initialized repository at", root)

			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "repository root directory")

	return cmd
}

/*
newDbCommand builds the db command group.
*/
func newDbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "media graph operations",
	}

	cmd.AddCommand(newDbSyncCommand())
	cmd.AddCommand(newDbQueryCommand())
	cmd.AddCommand(newDbListCommand())
	cmd.AddCommand(newDbConnectCommand())
	cmd.AddCommand(newDbInfoCommand())

	return cmd
}

/*
newDbSyncCommand builds the db sync command.
*/
func newDbSyncCommand() *cobra.Command {
	var samples, tracks bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "walk the media directories and update the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			gm, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer gm.Store().Close()

			w := ingest.NewWalker(gm)

			report := func(what string, stats *ingest.Stats) {
				fmt.Fprintf(cmd.OutOrStdout(),
					"%v: %v scanned, %v added, %v updated, %v skipped, %v errors\n",
					what, stats.Scanned, stats.Added, stats.Updated,
					stats.Skipped, stats.Errors)
			}

			if samples || !tracks {
				stats, err := w.SyncSamples(cfg.SampleDir())
				if err != nil {
					return err
				}
				report("samples", stats)
			}

			if tracks || !samples {
				stats, err := w.SyncTracks(cfg.TrackDir())
				if err != nil {
					return err
				}
				report("tracks", stats)
			}

			_, err = gm.Flush()

			return err
		},
	}

	cmd.Flags().BoolVar(&samples, "samples", false, "sync the sample directory")
	cmd.Flags().BoolVar(&tracks, "tracks", false, "sync the track directory")

	return cmd
}

/*
newDbQueryCommand builds the db query command.
*/
func newDbQueryCommand() *cobra.Command {
	var path, artist, album, genre, coll, playlist string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "look up nodes by metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			gm, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer gm.Store().Close()

			var mk types.MetaKind

			switch {
			case path != "":
				mk = types.PathMeta(types.FileUri(path))
			case artist != "":
				mk = types.ArtistMeta(artist)
			case album != "":
				mk = types.AlbumMeta(album)
			case genre != "":
				mk = types.GenreMeta(genre)
			case coll != "":
				mk = types.CollMeta(coll)
			case playlist != "":
				mk = types.PlaylistMeta(playlist)
			default:
				return fmt.Errorf("one of --path --artist --album --genre --coll --playlist is required")
			}

			vec, err := gm.Meta(mk)
			if err != nil {
				return err
			}

			for _, id := range vec {
				node, err := gm.FetchNode(id)
				if err != nil {
					return err
				}

				if node != nil {
					fmt.Fprintln(cmd.OutOrStdout(), node)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "query by file path")
	cmd.Flags().StringVar(&artist, "artist", "", "query by artist")
	cmd.Flags().StringVar(&album, "album", "", "query by album")
	cmd.Flags().StringVar(&genre, "genre", "", "query by genre")
	cmd.Flags().StringVar(&coll, "coll", "", "query by collection")
	cmd.Flags().StringVar(&playlist, "playlist", "", "query by playlist")

	return cmd
}

/*
newDbListCommand builds the db list command.
*/
func newDbListCommand() *cobra.Command {
	var media, edges bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list graph content",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			gm, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer gm.Store().Close()

			if media || !edges {
				err := gm.Nodes().ScanFrom(nil, func(n types.Node) bool {
					fmt.Fprintln(cmd.OutOrStdout(), n)
					return true
				})
				if err != nil {
					return err
				}
			}

			if edges || !media {
				err := gm.Edges().Scan(func(e types.Edge) bool {
					fmt.Fprintln(cmd.OutOrStdout(), e)
					return true
				})
				if err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&media, "media", false, "list media nodes")
	cmd.Flags().BoolVar(&edges, "edges", false, "list edges")

	return cmd
}

/*
newDbConnectCommand builds the db connect command.
*/
func newDbConnectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect IN OUT",
		Short: "connect two media files with a next edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			gm, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer gm.Store().Close()

			var nodes [2]*types.Node

			for i, arg := range args {
				abs, aerr := filepath.Abs(arg)
				if aerr != nil {
					abs = arg
				}

				node, lerr := gm.LookupPath(types.FileUri(abs))
				if lerr != nil {
					return lerr
				}

				if node == nil {
					return fmt.Errorf("unknown path %v (run mpk db sync first)", arg)
				}

				nodes[i] = node
			}

			edge, err := gm.Connect(types.EdgeNext, nodes[0].ID, nodes[1].ID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), edge)

			_, err = gm.Flush()

			return err
		},
	}

	return cmd
}

/*
newDbInfoCommand builds the db info command.
*/
func newDbInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "report store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			gm, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer gm.Store().Close()

			info, err := gm.Info()
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), info)

			return nil
		},
	}
}

/*
newEngineCommand builds the engine command (the daemon).
*/
func newEngineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "engine",
		Short: "run the engine daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logutil.GetLogger("mpk").AddLogSink(
				logutil.StringToLoglevel(cfg.Engine.LogLevel),
				logutil.SimpleFormatter(), os.Stderr)

			gm, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer gm.Store().Close()

			machine := vm.NewMachine(comp.NewCompiler())

			srv := engine.NewServer(gm, machine,
				time.Duration(cfg.Engine.TimeoutMs)*time.Millisecond)

			if cfg.Engine.Proxy != "" {
				if err := srv.SetProxy(cfg.Engine.Proxy); err != nil {
					return err
				}
			}

			if err := srv.Listen(cfg.Engine.Socket); err != nil {
				return err
			}

			srv.Run()

			return nil
		},
	}
}

/*
newEvalCommand builds the eval command.
*/
func newEvalCommand() *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "eval SRC",
		Short: "evaluate mk source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {

			// With a remote address the source evaluates on a running
			// daemon, otherwise in-process

			if remote != "" {
				client, err := engine.Dial(remote, 0)
				if err != nil {
					return err
				}
				defer client.Close()

				res, err := client.Eval(args[0])
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), res)

				return nil
			}

			machine := vm.NewMachine(comp.NewCompiler())

			results, err := machine.Eval(args[0], comp.OptTwo)
			if err != nil {
				return err
			}

			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), vm.Display(r))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "engine address to evaluate on")

	return cmd
}

/*
newPackCommand builds the pack command.
*/
func newPackCommand() *cobra.Command {
	var level int

	cmd := &cobra.Command{
		Use:   "pack SRC DST",
		Short: "pack a directory into a tar.zst archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flate.Pack(args[0], args[1], flate.Level(level))
		},
	}

	cmd.Flags().IntVar(&level, "level", 0, "compression level (0 default, 1 fastest, 2 best)")

	return cmd
}

/*
newUnpackCommand builds the unpack command.
*/
func newUnpackCommand() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "unpack SRC DST",
		Short: "unpack a tar.zst archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if replace {
				return flate.UnpackReplace(args[0], args[1])
			}

			return flate.Unpack(args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "remove the archive after unpacking")

	return cmd
}

/*
newOtCommand builds the ot command group.
*/
func newOtCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ot",
		Short: "Octatrack metadata files",
	}

	show := &cobra.Command{
		Use:   "show FILE",
		Short: "show an .ot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ot.ReadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "tempo: %v\n", f.Tempo)
			fmt.Fprintf(out, "gain: %v\n", f.Gain)
			fmt.Fprintf(out, "loop: %v stretch: %v quantize: %v\n",
				f.Loop, f.Stretch, f.Quantize)
			fmt.Fprintf(out, "trim: %v..%v len %v\n", f.TrimStart, f.TrimEnd, f.TrimLen)
			fmt.Fprintf(out, "slices: %v\n", f.NumSlices)

			for i := uint32(0); i < f.NumSlices; i++ {
				s := f.Slices[i]
				fmt.Fprintf(out, "  %2d: %v..%v loop %v\n", i, s.Start, s.End, s.LoopPoint)
			}

			return nil
		},
	}

	var tempo float64
	var slices int
	var length uint32

	new := &cobra.Command{
		Use:   "new FILE",
		Short: "write an .ot file with evenly spaced slices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := ot.New(tempo)
			f.TrimLen = length
			f.TrimEnd = length

			if slices > 0 {
				step := length / uint32(slices)

				for i := 0; i < slices; i++ {
					if err := f.AddSlice(uint32(i)*step, uint32(i+1)*step, 0); err != nil {
						return err
					}
				}
			}

			return f.WriteFile(args[0])
		},
	}

	new.Flags().Float64Var(&tempo, "tempo", 120, "tempo in bpm")
	new.Flags().IntVar(&slices, "slices", 0, "number of evenly spaced slices")
	new.Flags().Uint32Var(&length, "length", 0, "sample length in frames")

	cmd.AddCommand(show)
	cmd.AddCommand(new)

	return cmd
}

/*
newStatusCommand builds the status command.
*/
func newStatusCommand() *cobra.Command {
	var dbStatus, audio, midi bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "report repository status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "root:", cfg.Fs.Root)

			if audio || midi {

				// Audio and MIDI devices are managed by external
				// tooling; report the configured engine endpoints

				fmt.Fprintln(out, "engine:", cfg.Engine.Socket)
			}

			if dbStatus || (!audio && !midi) {
				gm, gerr := openGraph(cfg)
				if gerr != nil {
					return gerr
				}
				defer gm.Store().Close()

				info, ierr := gm.Info()
				if ierr != nil {
					return ierr
				}

				fmt.Fprint(out, strings.TrimSpace(info.String())+"\n")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&dbStatus, "db", false, "report store status")
	cmd.Flags().BoolVar(&audio, "audio", false, "report audio status")
	cmd.Flags().BoolVar(&midi, "midi", false, "report midi status")

	return cmd
}
