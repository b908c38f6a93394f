package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/internal/colour"
)

const sessionHelp = `Commands:
  add <path|url>...    add images, directories, archives or URLs
  opacity <0-100>      set opacity (applied after a short pause)
  bg <colour>          set the background colour
  rm <n|id>            remove an image by list number or id
  ls                   list images
  params               show current parameters
  name <colour>...     name colours
  wait                 apply pending changes and wait for processing
  export               export processed images
  help                 show this help
  quit                 leave the session
`

// newSessionCmd creates the session command.
func newSessionCmd(a *app) *cobra.Command {
	var (
		params paramFlags
		saver  saverFlags
	)

	cmd := &cobra.Command{
		Use:   "session [path]...",
		Short: "Adjust a batch of images interactively",
		Long: `Start an interactive session over a live batch of images.

Opacity changes are debounced like a slider: several quick changes result
in a single reprocessing pass. Background changes apply immediately. Commands
are read line by line from standard input, so a session can also be scripted:

  printf 'add ./icons\nbg 1e1e2e\nopacity 80\nwait\nexport\n' | backdrop session -o ./out

` + sessionHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			params.apply(cmd.Flags(), a)

			coord, err := a.newCoordinator(nil)
			if err != nil {
				return err
			}
			defer coord.Close(context.Background())

			s := &session{
				app:   a,
				coord: coord,
				saver: &saver,
				out:   cmd.OutOrStdout(),
			}

			ctx := cmd.Context()
			if len(args) > 0 {
				if err := s.add(ctx, args); err != nil {
					return err
				}
			}

			in := cmd.InOrStdin()
			s.interactive = in == os.Stdin && term.IsTerminal(int(os.Stdin.Fd()))
			return s.run(ctx, in)
		},
	}

	params.register(cmd.Flags())
	saver.register(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("archive", "exporter")

	return cmd
}

// session executes line commands against a live Coordinator.
type session struct {
	app         *app
	coord       *batch.Coordinator
	saver       *saverFlags
	out         io.Writer
	interactive bool
}

var errQuit = errors.New("quit")

func (s *session) run(ctx context.Context, in io.Reader) error {
	if s.interactive {
		fmt.Fprint(s.out, "backdrop session. Type \"help\" for commands.\n")
	}

	scanner := bufio.NewScanner(in)
	for {
		if s.interactive {
			fmt.Fprint(s.out, "> ")
		}
		if !scanner.Scan() {
			break
		}

		err := s.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read commands: %w", err)
	}
	return nil
}

// exec runs a single command line.
func (s *session) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "add":
		if len(args) == 0 {
			return errors.New("usage: add <path>...")
		}
		return s.add(ctx, args)

	case "opacity":
		if len(args) != 1 {
			return errors.New("usage: opacity <0-100>")
		}
		var v opacityValue
		if err := v.Set(args[0]); err != nil {
			return err
		}
		s.coord.SetOpacity(int(v))
		fmt.Fprintf(s.out, "opacity %d%%\n", s.coord.DisplayOpacity())
		return nil

	case "bg", "background":
		if len(args) != 1 {
			return errors.New("usage: bg <colour>")
		}
		if err := s.coord.SetBackground(args[0]); err != nil {
			return err
		}
		bg := s.coord.Params().Background
		fmt.Fprintf(s.out, "background %s (%s)\n", bg, colour.NameOf(bg))
		return nil

	case "rm", "remove":
		if len(args) != 1 {
			return errors.New("usage: rm <n|id>")
		}
		return s.remove(args[0])

	case "ls", "list":
		s.list()
		return nil

	case "params":
		p := s.coord.Params()
		fmt.Fprintf(s.out, "opacity %d%% (display %d%%), background %s, state %s\n",
			p.Opacity, s.coord.DisplayOpacity(), p.Background, s.coord.State())
		return nil

	case "name":
		for _, n := range classify(args) {
			fmt.Fprintf(s.out, "%s  %s\n", n.Input, n.Name)
		}
		return nil

	case "wait":
		s.coord.Flush()
		if err := s.coord.WaitIdle(ctx); err != nil {
			return err
		}
		if err := s.coord.LastError(); err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}
		return nil

	case "export":
		return s.export(ctx)

	case "help", "?":
		fmt.Fprint(s.out, sessionHelp)
		return nil

	case "quit", "exit", "q":
		return errQuit
	}

	return fmt.Errorf("unknown command %q (type \"help\")", cmd)
}

func (s *session) add(ctx context.Context, paths []string) error {
	uploads, err := loadUploads(ctx, s.out, paths)
	if err != nil {
		return err
	}

	report, err := s.coord.Ingest(ctx, uploads)
	if err != nil {
		return err
	}
	for _, sk := range report.Skipped {
		fmt.Fprintf(s.out, "skipped %s: %s\n", sk.Name, sk.Reason)
	}
	fmt.Fprintf(s.out, "added %d image(s)\n", len(report.Accepted))
	return nil
}

func (s *session) remove(ref string) error {
	id := ref
	if n, err := strconv.Atoi(ref); err == nil {
		images := s.coord.Images()
		if n < 1 || n > len(images) {
			return fmt.Errorf("no image number %d", n)
		}
		id = images[n-1].ID
	}

	if err := s.coord.Remove(id); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "removed")
	return nil
}

func (s *session) list() {
	images := s.coord.Images()
	if len(images) == 0 {
		fmt.Fprintln(s.out, "no images")
		return
	}

	table := NewTable([]string{"#", "NAME", "STATUS", "OPACITY", "BACKGROUND", "ID"})
	table.SetColumnMaxWidth(1, 40)
	for i, img := range images {
		status := "pending"
		opacity, bg := "", ""
		switch {
		case img.Error != "":
			status = "failed"
		case img.HasOutput():
			status = "ready"
			opacity = fmt.Sprintf("%d%%", img.Opacity)
			bg = img.Background
		}
		table.AddRow([]string{strconv.Itoa(i + 1), img.Name, status, opacity, bg, img.ID})
	}
	fmt.Fprint(s.out, table.Render())
}

func (s *session) export(ctx context.Context) error {
	s.coord.Flush()
	if err := s.coord.WaitIdle(ctx); err != nil {
		return err
	}

	saver, err := s.saver.open(ctx, s.app, s.coord.Params())
	if err != nil {
		return fmt.Errorf("failed to open export destination: %w", err)
	}
	saved, exportErr := s.coord.ExportAll(ctx, saver)
	closeErr := saver.Close()

	for _, path := range saver.Written() {
		fmt.Fprintln(s.out, path)
	}
	fmt.Fprintf(s.out, "exported %d image(s)\n", saved)
	return errors.Join(exportErr, closeErr)
}
