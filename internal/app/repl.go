package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gotheater/lockstep/internal/session"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	cmdNone  = ""
	cmdPlay  = "play"
	cmdPause = "pause"
	cmdSeek  = "seek"
	cmdMedia = "media"
	cmdRuler = "ruler"
	cmdWho   = "who"
	cmdHelp  = "help"
	cmdQuit  = "quit"
)

const usage = `commands:
  play            resume playback
  pause           pause playback
  seek <ms>       jump to position
  media <url>     change media source
  ruler <id>      hand rulership to a participant
  who             show session and participants
  quit            leave the room`

type command struct {
	name       string
	positionMs int
	arg        string
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{name: cmdNone}, nil
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case cmdPlay, cmdPause, cmdWho, cmdHelp, cmdQuit:
		if len(args) != 0 {
			return command{}, fmt.Errorf("%w: %s takes no arguments", ErrInvalidArgument, name)
		}
		return command{name: name}, nil
	case "exit":
		return command{name: cmdQuit}, nil
	case cmdSeek:
		if len(args) != 1 {
			return command{}, fmt.Errorf("%w: usage: seek <ms>", ErrInvalidArgument)
		}
		ms, err := strconv.Atoi(args[0])
		if err != nil || ms < 0 {
			return command{}, fmt.Errorf("%w: position must be a non-negative number of milliseconds", ErrInvalidArgument)
		}
		return command{name: name, positionMs: ms}, nil
	case cmdMedia, cmdRuler:
		if len(args) != 1 {
			return command{}, fmt.Errorf("%w: usage: %s <value>", ErrInvalidArgument, name)
		}
		return command{name: name, arg: args[0]}, nil
	}

	return command{}, fmt.Errorf("%w: %q, try help", ErrUnknownCommand, name)
}

func execute(ctx context.Context, sess *session.Client, cmd command, out io.Writer) error {
	switch cmd.name {
	case cmdNone:
		return nil
	case cmdPlay:
		return sess.Play(ctx)
	case cmdPause:
		return sess.Pause(ctx)
	case cmdSeek:
		return sess.Seek(ctx, cmd.positionMs)
	case cmdMedia:
		return sess.SetMedia(ctx, cmd.arg)
	case cmdRuler:
		return sess.TransferRuler(ctx, cmd.arg)
	case cmdHelp:
		fmt.Fprintln(out, usage)
		return nil
	case cmdWho:
		snap, err := sess.Snapshot(ctx)
		if err != nil {
			return err
		}
		printSnapshot(out, snap)
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.name)
}

func printSnapshot(out io.Writer, snap session.Snapshot) {
	fmt.Fprintf(out, "self=%s ruler=%s epoch=%d connected=%t rtt=%dms\n",
		snap.SelfID, snap.RulerID, snap.RulerEpoch, snap.Connected, snap.RTT)
	fmt.Fprintf(out, "media=%q playing=%t position=%dms rate=%.2f\n",
		snap.Playback.SourceURL, snap.Playback.Playing, snap.Playback.PositionMs, snap.Playback.Rate)

	for _, p := range snap.Participants {
		marker := " "
		if p.ID == snap.RulerID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s %q playing=%t position=%dms ping=%dms rate=%.2f\n",
			marker, p.ID, p.Name, p.Playing, p.CurrentMediaTimestamp, p.CurrentPing, p.CurrentPlaybackRate)
	}
}
