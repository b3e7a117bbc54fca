package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"ari/internal/assistant"
	"ari/internal/assistant/ports"
	"ari/internal/parse"
)

type chatFlags struct {
	newConversation bool
	title           string
	conversationID  string
}

func newChatCmd(opts *cliOptions) *cobra.Command {
	flags := chatFlags{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively with streaming replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.newConversation, "new", false, "Start a new conversation")
	cmd.Flags().StringVar(&flags.title, "title", "", "Title for a new conversation")
	cmd.Flags().StringVarP(&flags.conversationID, "conversation", "c", "", "Resume a conversation by id")
	return cmd
}

// streamPrinter writes only the unseen suffix of each cumulative
// snapshot, so the terminal shows a growing reply.
type streamPrinter struct {
	mu      sync.Mutex
	printed int
	out     io.Writer
}

func (p *streamPrinter) OnEvent(event ports.Event) {
	snapshot, ok := event.(assistant.StreamSnapshotEvent)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(snapshot.Text) > p.printed {
		fmt.Fprint(p.out, snapshot.Text[p.printed:])
		p.printed = len(snapshot.Text)
	}
}

func (p *streamPrinter) reset() {
	p.mu.Lock()
	p.printed = 0
	p.mu.Unlock()
}

func runChat(cmd *cobra.Command, opts *cliOptions, flags chatFlags) error {
	c, err := buildContainer(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	convID, err := resolveConversation(ctx, c, flags)
	if err != nil {
		return err
	}

	printer := &streamPrinter{out: os.Stdout}
	c.engine.AddListener(printer)

	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("> "),
		HistoryFile:       filepath.Join(home, ".ari-history"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s conversation %s. Type %s to leave, %s to keep a suggested artifact.\n",
		gray("ari"), gray(convID), bold("exit"), bold("/save"))

	var lastSuggestion *ports.ArtifactSuggestion
	var lastReply string

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit" || line == "q":
			return nil
		case line == "/save":
			if lastSuggestion == nil {
				fmt.Println(gray("Nothing to save yet."))
				continue
			}
			artifact, update, err := c.coordinator.SaveArtifact(ctx, convID, *lastSuggestion)
			if err != nil {
				fmt.Println(red("Save failed: " + err.Error()))
				continue
			}
			fmt.Printf("%s %s %s\n", green("Saved"), artifact.Title, gray("("+artifact.ID+")"))
			if moodLine := c.renderer.MoodLine(update); moodLine != "" {
				fmt.Println(moodLine)
			}
			lastSuggestion = nil
			continue
		case line == "/mood":
			update, err := c.coordinator.Mood(ctx, convID)
			if err != nil {
				fmt.Println(red(err.Error()))
				continue
			}
			if moodLine := c.renderer.MoodLine(update); moodLine != "" {
				fmt.Println(moodLine)
			} else {
				fmt.Println(gray("The assistant has no guidance right now."))
			}
			continue
		case strings.HasPrefix(line, "/transform"):
			runInlineTransform(ctx, c, convID, lastReply, strings.TrimSpace(strings.TrimPrefix(line, "/transform")))
			continue
		}

		printer.reset()
		result, err := sendWithInterrupt(ctx, c, convID, line)
		if err != nil {
			fmt.Println(red("Error: " + err.Error()))
			continue
		}
		fmt.Println()

		if result.Cancelled {
			fmt.Println(gray("(cancelled)"))
			continue
		}
		if result.PersistWarn != "" {
			fmt.Println(yellow(result.PersistWarn))
		}
		if result.Result != nil {
			lastReply = result.Result.Text
			if result.Result.Suggestion != nil {
				lastSuggestion = result.Result.Suggestion
				fmt.Println(c.renderer.Suggestion(lastSuggestion))
			}
		}
		if moodLine := c.renderer.MoodLine(result.MoodUpdate); moodLine != "" {
			fmt.Println(moodLine)
		}
	}
	return nil
}

// sendWithInterrupt routes Ctrl-C during generation into Cancel instead
// of killing the process.
func sendWithInterrupt(ctx context.Context, c *container, convID, input string) (*assistant.TurnResult, error) {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	done := make(chan struct{})
	defer func() {
		signal.Stop(interrupts)
		close(done)
	}()
	go func() {
		select {
		case <-interrupts:
			c.coordinator.Cancel()
		case <-done:
		}
	}()

	return c.coordinator.Send(ctx, convID, input)
}

func runInlineTransform(ctx context.Context, c *container, convID, content, kindArg string) {
	if content == "" {
		fmt.Println(gray("Nothing to transform yet."))
		return
	}
	kind, err := ports.ParseTransformKind(kindArg)
	if err != nil {
		names := make([]string, 0, len(ports.AllTransformKinds()))
		for _, k := range ports.AllTransformKinds() {
			names = append(names, string(k))
		}
		fmt.Println(red("Usage: /transform " + strings.Join(names, "|")))
		return
	}
	text, err := c.coordinator.Transform(ctx, convID, content, kind)
	if err != nil {
		fmt.Println(red("Transform failed: " + err.Error()))
		return
	}
	fmt.Println(renderTransform(c, kind, text))
}

// renderTransform applies the structured parser matching the kind.
func renderTransform(c *container, kind ports.TransformKind, text string) string {
	switch kind {
	case ports.TransformQuiz:
		return c.renderer.Quiz(parse.Quiz(text))
	case ports.TransformFlashcards:
		return c.renderer.Flashcards(parse.Flashcards(text))
	case ports.TransformBullets:
		return c.renderer.Bullets(parse.Bullets(text))
	default:
		return c.renderer.Markdown(text)
	}
}

// resolveConversation picks the conversation for this session: the flag
// id when given, a fresh conversation for --new, a promptui picker when
// history exists on a TTY, otherwise a new conversation.
func resolveConversation(ctx context.Context, c *container, flags chatFlags) (string, error) {
	if flags.conversationID != "" {
		if _, err := c.store.Get(ctx, flags.conversationID); err != nil {
			return "", fmt.Errorf("conversation %s: %w", flags.conversationID, err)
		}
		return flags.conversationID, nil
	}
	if !flags.newConversation && isTTY() {
		if id, ok := pickConversation(ctx, c); ok {
			return id, nil
		}
	}
	title := flags.title
	if title == "" {
		title = "New conversation"
	}
	conv, err := c.store.Create(ctx, title)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return conv.ID, nil
}

func pickConversation(ctx context.Context, c *container) (string, bool) {
	ids, err := c.store.List(ctx, 10, 0)
	if err != nil || len(ids) == 0 {
		return "", false
	}

	const startNew = "Start a new conversation"
	items := []string{startNew}
	byLabel := map[string]string{}
	for _, id := range ids {
		conv, err := c.store.Get(ctx, id)
		if err != nil {
			continue
		}
		label := fmt.Sprintf("%s (%d messages)", conv.Title, conv.MessageCount())
		items = append(items, label)
		byLabel[label] = id
	}
	if len(items) == 1 {
		return "", false
	}

	prompt := promptui.Select{
		Label: "Continue a conversation",
		Items: items,
	}
	_, choice, err := prompt.Run()
	if err != nil || choice == startNew {
		return "", false
	}
	id, ok := byLabel[choice]
	return id, ok
}

// runOneShot sends a single prompt in a throwaway conversation and
// prints the streamed reply.
func runOneShot(cmd *cobra.Command, opts *cliOptions, input string) error {
	c, err := buildContainer(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	conv, err := c.store.Create(ctx, firstWords(input, 6))
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	printer := &streamPrinter{out: os.Stdout}
	c.engine.AddListener(printer)

	result, err := sendWithInterrupt(ctx, c, conv.ID, input)
	if err != nil {
		return err
	}
	fmt.Println()
	if result.Cancelled {
		fmt.Println(gray("(cancelled)"))
		return nil
	}
	if result.Result != nil && result.Result.Suggestion != nil {
		fmt.Println(c.renderer.Suggestion(result.Result.Suggestion))
	}
	return nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
