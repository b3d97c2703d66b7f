package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/openrouter"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

const helpText = `commands:
  /attach <path>      attach a local file to the next message
  /model [id|label]   show or switch the model
  /models             list catalog models
  /reasoning on|off   show reasoning text
  /reset              clear the conversation
  /quit               exit`

var errUnknownCommand = errors.New("unknown command, type /help")

type streamer interface {
	Stream(ctx context.Context, req types.ChatCompletionRequest) (*openrouter.Stream, error)
}

// session 一次交互式对话
type session struct {
	client  streamer
	builder *content.MessageBuilder
	cat     catalog.Catalog
	log     *logger.Logger
	out     io.Writer

	model     string
	system    string
	reasoning bool
	history   []types.Message
	pending   []content.Attachment

	// interrupt 返回回复期间的中断上下文（默认为 Ctrl-C）
	interrupt func(ctx context.Context) (context.Context, context.CancelFunc)
}

func newSession(client streamer, builder *content.MessageBuilder, cat catalog.Catalog, log *logger.Logger) *session {
	return &session{
		client:  client,
		builder: builder,
		cat:     cat,
		log:     logger.OrGlobal(log).Named("chat"),
		out:     os.Stdout,
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
	}
}

func (s *session) setModel(idOrLabel string) {
	s.model = catalog.ResolveID(idOrLabel, s.cat)
}

func (s *session) loop(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	fmt.Fprintf(s.out, "model: %s (/help for commands)\n", s.model)
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		quit, err := s.handle(ctx, sc.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (s *session) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, s.send(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(s.out, helpText)
	case "/reset":
		s.history, s.pending = nil, nil
		fmt.Fprintln(s.out, "conversation cleared")
	case "/model":
		if arg != "" {
			s.setModel(arg)
		}
		fmt.Fprintf(s.out, "model: %s\n", s.model)
	case "/models":
		for _, m := range s.cat {
			marker := " "
			if m.ID == s.model {
				marker = "*"
			}
			fmt.Fprintf(s.out, "%s %-40s %-32s %s\n", marker, m.ID, m.Label, m.Tiers.Quality)
		}
	case "/reasoning":
		switch arg {
		case "on":
			s.reasoning = true
		case "off":
			s.reasoning = false
		default:
			return false, fmt.Errorf("usage: /reasoning on|off")
		}
		fmt.Fprintf(s.out, "reasoning: %s\n", arg)
	case "/attach":
		return false, s.attach(arg)
	default:
		return false, errUnknownCommand
	}
	return false, nil
}

func (s *session) attach(p string) error {
	if p == "" {
		return fmt.Errorf("usage: /attach <path>")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	s.pending = append(s.pending, content.Attachment{Rel: abs, Name: fi.Name(), Size: fi.Size()})
	fmt.Fprintf(s.out, "attached %s (%d bytes)\n", fi.Name(), fi.Size())
	return nil
}

// send 发送一轮消息并流式打印回复
//
// 附件只随当前这一轮发送，历史中保留纯文本。被中断的回复保留已收到的部分。
func (s *session) send(ctx context.Context, text string) error {
	msgs := make([]types.Message, 0, len(s.history)+2)
	if s.system != "" {
		msgs = append(msgs, types.SystemMessage(s.system))
	}
	msgs = append(msgs, s.history...)
	msgs = append(msgs, types.UserMessage(text))
	msgs = s.builder.Build(ctx, msgs, s.pending)

	req := types.ChatCompletionRequest{Model: s.model, Messages: msgs}
	if s.reasoning {
		req.IncludeReasoning = types.Bool(true)
	}
	stream, err := s.client.Stream(ctx, req)
	if err != nil {
		return err
	}
	s.pending = nil
	s.history = append(s.history, types.UserMessage(text))

	ictx, cancel := s.interrupt(ctx)
	defer cancel()
	release := context.AfterFunc(ictx, stream.Stop)
	defer release()

	var (
		reply    strings.Builder
		thinking bool
		usage    map[string]any
	)
	for chunk, err := range stream.All() {
		if err != nil {
			fmt.Fprintln(s.out)
			s.remember(reply.String())
			return err
		}
		switch c := chunk.(type) {
		case types.ReasoningChunk:
			if s.reasoning {
				if !thinking {
					fmt.Fprint(s.out, "(thinking) ")
					thinking = true
				}
				fmt.Fprint(s.out, c.Text)
			}
		case types.ContentChunk:
			if thinking {
				fmt.Fprint(s.out, "\n\n")
				thinking = false
			}
			reply.WriteString(c.Text)
			fmt.Fprint(s.out, c.Text)
		case types.UsageChunk:
			usage = c.Usage
		}
	}
	fmt.Fprintln(s.out)
	if stream.Stopped() {
		fmt.Fprintln(s.out, "[stopped]")
	}
	s.remember(reply.String())
	if usage != nil {
		s.log.Debug("turn usage", zap.String("stream_id", stream.ID()), zap.Any("usage", usage))
	}
	return nil
}

func (s *session) remember(reply string) {
	if reply == "" {
		return
	}
	s.history = append(s.history, types.Message{Role: types.RoleAssistant, Content: reply})
}
