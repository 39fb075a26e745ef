// Package topics adds help topics to a cobra command tree. Topics are
// markdown or text files read from an fs.FS, usually an embedded one,
// and shown by "help <topic>".
package topics

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/declarix/pkg/errors"
)

// Topic is one help page
type Topic struct {
	Name    string
	Format  string
	Content string
}

// Manager holds the loaded topics and the renderer used to show them
type Manager struct {
	topics     map[string]*Topic
	extensions []string
	renderer   Renderer
}

// Options configures Load
type Options struct {
	// Extensions considered as topics, defaults to .md and .txt
	Extensions []string

	// Renderer defaults to PlainRenderer
	Renderer Renderer
}

// Load reads every topic file under dir in fsys
func Load(fsys fs.FS, dir string, opts Options) (*Manager, error) {
	m := &Manager{
		topics:     make(map[string]*Topic),
		extensions: opts.Extensions,
		renderer:   opts.Renderer,
	}
	if len(m.extensions) == 0 {
		m.extensions = []string{".md", ".txt"}
	}
	if m.renderer == nil {
		m.renderer = &PlainRenderer{}
	}

	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !m.supported(path.Ext(p)) {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		ext := path.Ext(p)
		name := strings.TrimSuffix(path.Base(p), ext)
		m.topics[name] = &Topic{Name: name, Format: ext, Content: string(data)}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load help topics")
	}
	return m, nil
}

func (m *Manager) supported(ext string) bool {
	for _, valid := range m.extensions {
		if ext == valid {
			return true
		}
	}
	return false
}

// Get looks a topic up by name
func (m *Manager) Get(name string) (*Topic, bool) {
	topic, ok := m.topics[strings.ToLower(strings.TrimSpace(name))]
	return topic, ok
}

// Names lists the topic names, sorted
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render returns the display form of a topic
func (m *Manager) Render(topic *Topic) string {
	return m.renderer.Render(topic.Content, topic.Format)
}

// Install replaces the help command of root with one that also knows the
// loaded topics. "help topics" lists them.
func (m *Manager) Install(root *cobra.Command) {
	originalHelp := root.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: "Help provides help for any command or topic.\n\n" +
			"To list the available topics:\n  " + root.Name() + " help topics",
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range root.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.Names()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				originalHelp(root, args)
				return
			}

			if args[0] == "topics" {
				names := m.Names()
				if len(names) == 0 {
					fmt.Fprintln(out, "No help topics available.")
					return
				}
				fmt.Fprintln(out, "Available help topics:")
				for _, name := range names {
					fmt.Fprintf(out, "  %s\n", name)
				}
				fmt.Fprintf(out, "\nUse '%s help <topic>' to read about a specific topic.\n", root.Name())
				return
			}

			if topic, ok := m.Get(args[0]); ok {
				fmt.Fprint(out, m.Render(topic))
				return
			}

			target, _, err := root.Find(args)
			if err != nil || target == nil {
				fmt.Fprintf(out, "Unknown help topic %q\n", args[0])
				return
			}
			originalHelp(target, nil)
		},
	}

	for _, c := range root.Commands() {
		if c.Name() == "help" {
			root.RemoveCommand(c)
			break
		}
	}
	root.SetHelpCommand(helpCmd)
}
