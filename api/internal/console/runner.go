package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/session"
)

type Op string

const (
	OpNext    Op = "next"
	OpPrev    Op = "prev"
	OpGoto    Op = "goto"
	OpReset   Op = "reset"
	OpAuto    Op = "auto"
	OpRotate  Op = "rotate"
	OpFlip    Op = "flip"
	OpSet     Op = "set"
	OpSubmit  Op = "submit"
	OpRetry   Op = "retry"
	OpPayload Op = "payload"
	OpStatus  Op = "status"
	OpHelp    Op = "help"
	OpQuit    Op = "quit"
)

var aliases = map[string]Op{
	"n": OpNext, "next": OpNext,
	"p": OpPrev, "prev": OpPrev,
	"g": OpGoto, "goto": OpGoto,
	"reset":   OpReset,
	"a":       OpAuto,
	"auto":    OpAuto,
	"r":       OpRotate,
	"rotate":  OpRotate,
	"f":       OpFlip,
	"flip":    OpFlip,
	"set":     OpSet,
	"s":       OpSubmit,
	"submit":  OpSubmit,
	"retry":   OpRetry,
	"payload": OpPayload,
	"st":      OpStatus,
	"status":  OpStatus,
	"h":       OpHelp,
	"help":    OpHelp,
	"?":       OpHelp,
	"q":       OpQuit,
	"quit":    OpQuit,
	"exit":    OpQuit,
}

const helpText = `commands:
  n, next          next photo
  p, prev          previous photo
  g, goto N        jump to photo N (1-based)
  set X Y W H      move/resize the crop frame
  r, rotate        rotate 90°
  f, flip          mirror horizontally
  a, auto          re-apply auto crop
  reset            drop your edit for this photo
  retry            reload a photo that failed
  payload          print what submit would send
  st, status       current photo, phase and last error
  s, submit        save and finish
  q, quit          leave without saving`

type Command struct {
	Op    Op
	Index int       // OpGoto, 0-based
	Rect  crop.Rect // OpSet
}

var ErrUnknownCommand = errors.New("unknown command")

// Parse разбирает одну строку ввода. Пустая строка — (Command{}, nil).
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, nil
	}
	op, ok := aliases[strings.ToLower(fields[0])]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	cmd := Command{Op: op}
	args := fields[1:]

	switch op {
	case OpGoto:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("goto: want one photo number")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("goto: bad photo number %q", args[0])
		}
		cmd.Index = n - 1
	case OpSet:
		if len(args) != 4 {
			return Command{}, fmt.Errorf("set: want X Y W H")
		}
		var v [4]float64
		for i, a := range args {
			f, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return Command{}, fmt.Errorf("set: bad number %q", a)
			}
			v[i] = f
		}
		cmd.Rect = crop.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3], ScaleX: 1, ScaleY: 1}
	}
	return cmd, nil
}

// Runner крутит цикл событий сессии и подаёт в него команды из ввода.
type Runner struct {
	Ctrl *session.Controller
	Loop *session.Loop
	View *View
	In   io.Reader
	Out  io.Writer
}

// Run возвращает nil, когда сессия закрылась (отправка, quit или конец ввода
// в спокойном состоянии), и ошибку контекста при отмене. Команды ждут, пока
// закончится загрузка или отправка, как ждал бы пользователь перед экраном.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer r.Loop.Close()

	var (
		queue []string
		eof   bool
	)

	r.Loop.Post(func() { r.Ctrl.Start(ctx) })

	go func() {
		sc := bufio.NewScanner(r.In)
		for sc.Scan() {
			line := sc.Text()
			r.Loop.Post(func() { queue = append(queue, line) })
		}
		r.Loop.Post(func() { eof = true })
	}()

	for {
		select {
		case <-r.View.Done():
			return nil
		default:
		}
		if err := r.Loop.Step(ctx); err != nil {
			select {
			case <-r.View.Done():
				return nil
			default:
			}
			return err
		}
		for len(queue) > 0 && settled(r.Ctrl.Phase()) {
			line := queue[0]
			queue = queue[1:]
			if r.exec(ctx, line) {
				return nil
			}
		}
		if eof && len(queue) == 0 && settled(r.Ctrl.Phase()) {
			return nil
		}
	}
}

// settled — состояние, в котором больше не ждём асинхронного ответа.
func settled(p session.Phase) bool {
	switch p {
	case session.PhaseIdle, session.PhaseLoading, session.PhaseNavigating, session.PhaseSubmitting:
		return false
	}
	return true
}

// exec выполняется на цикле событий; true — пользователь вышел.
func (r *Runner) exec(ctx context.Context, line string) bool {
	cmd, err := Parse(line)
	if err != nil {
		fmt.Fprintf(r.Out, "%v (type \"help\")\n", err)
		return false
	}

	switch cmd.Op {
	case "":
	case OpNext:
		r.Ctrl.Navigate(1)
	case OpPrev:
		r.Ctrl.Navigate(-1)
	case OpGoto:
		r.Ctrl.GoToPhoto(cmd.Index)
	case OpReset:
		r.Ctrl.Reset()
	case OpAuto:
		r.Ctrl.AutoCrop()
	case OpRotate:
		r.Ctrl.Rotate()
	case OpFlip:
		r.Ctrl.Flip()
	case OpSet:
		if cur, ok := r.Ctrl.Current(); ok {
			cmd.Rect.Rotate, cmd.Rect.ScaleX, cmd.Rect.ScaleY = cur.Rotate, cur.ScaleX, cur.ScaleY
		}
		r.Ctrl.Edit(cmd.Rect)
	case OpRetry:
		r.Ctrl.Retry()
	case OpPayload:
		js, err := r.Ctrl.Payload().JSON()
		if err != nil {
			fmt.Fprintf(r.Out, "payload: %v\n", err)
			break
		}
		fmt.Fprintln(r.Out, js)
	case OpSubmit:
		if err := r.Ctrl.Submit(ctx); err != nil {
			fmt.Fprintf(r.Out, "submit: %v\n", err)
		}
	case OpStatus:
		r.printStatus()
	case OpHelp:
		fmt.Fprintln(r.Out, helpText)
	case OpQuit:
		return true
	}
	return false
}

func (r *Runner) printStatus() {
	if r.Ctrl.Len() == 0 {
		fmt.Fprintf(r.Out, "no photos, phase=%s\n", r.Ctrl.Phase())
		return
	}
	s := r.Ctrl.Snapshot()
	fmt.Fprintf(r.Out, "[%s] %s order=%q phase=%s", s.Counter(), s.Photo.Label, r.Ctrl.OrderID(), r.Ctrl.Phase())
	if _, ok := r.Ctrl.Override(s.Photo.ID); ok {
		fmt.Fprint(r.Out, " edited")
	}
	if err := r.Ctrl.LastError(); err != nil {
		fmt.Fprintf(r.Out, " error=%q", err.Error())
	}
	fmt.Fprintln(r.Out)
}
