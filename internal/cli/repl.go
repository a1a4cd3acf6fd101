package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/garyjia/factura-chat/internal/application/conversation"
	"github.com/garyjia/factura-chat/internal/domain/entity"
)

// Session is the conversation the REPL drives.
type Session interface {
	State() conversation.State
	Send(ctx context.Context, text string) (conversation.State, error)
	Reset(ctx context.Context) (conversation.State, error)
}

// Commands recognised at the prompt
const (
	CommandExit  = "/salir"
	CommandReset = "/nueva"
	CommandState = "/estado"
	CommandHelp  = "/ayuda"
)

const helpText = `Escribí tu pedido, por ejemplo "Factura B para María García DNI 30123456 por $25000".
Comandos: /nueva (empezar de nuevo), /estado (ver etapa), /salir`

// REPL reads lines from in and prints the replies of a session to out.
type REPL struct {
	session Session
	in      *bufio.Reader
	out     io.Writer
	shown   int
}

// NewREPL creates a REPL over session.
func NewREPL(session Session, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		session: session,
		in:      bufio.NewReader(in),
		out:     out,
	}
}

// Run loops until the user exits, input ends or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, TitleStyle.Render("Facturación por chat"))
	fmt.Fprintln(r.out, FormatHint(helpText))
	r.printNew(r.session.State())

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(r.out, PromptStyle.Render("> "))
		line, err := r.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		text := strings.TrimSpace(line)
		if text != "" {
			if quit := r.handle(ctx, text); quit {
				return nil
			}
		}
		if eof {
			fmt.Fprintln(r.out)
			return nil
		}
	}
}

// handle processes one line and reports whether the REPL should stop.
func (r *REPL) handle(ctx context.Context, text string) bool {
	switch strings.ToLower(text) {
	case CommandExit, "/exit", "/quit":
		fmt.Fprintln(r.out, FormatHint("¡Hasta luego!"))
		return true
	case CommandHelp, "/help":
		fmt.Fprintln(r.out, FormatHint(helpText))
		return false
	case CommandState:
		st := r.session.State()
		hint := fmt.Sprintf("Etapa: %s", st.Stage)
		if st.DemoMode {
			hint += " (demo)"
		}
		fmt.Fprintln(r.out, FormatHint(hint))
		return false
	case CommandReset:
		st, err := r.session.Reset(ctx)
		if err != nil {
			fmt.Fprintln(r.out, FormatError(err.Error()))
			return false
		}
		r.shown = 0
		fmt.Fprintln(r.out, FormatHint("Conversación reiniciada."))
		r.printNew(st)
		return false
	}

	st, err := r.session.Send(ctx, text)
	if err != nil {
		fmt.Fprintln(r.out, FormatError(err.Error()))
	}
	r.printNew(st)
	return false
}

// printNew prints the assistant turns added since the last call. User turns are
// already on screen as typed input.
func (r *REPL) printNew(st conversation.State) {
	if r.shown > len(st.Messages) {
		r.shown = 0
	}
	for _, turn := range st.Messages[r.shown:] {
		if turn.Speaker == entity.SpeakerUser {
			continue
		}
		fmt.Fprintln(r.out, RenderTurn(turn))
	}
	r.shown = len(st.Messages)
}
