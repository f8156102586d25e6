//go:build !tinygo

package main

import (
	"strconv"

	"github.com/google/shlex"
	"github.com/pkg/errors"
)

// touchStep is one scripted change of the simulated touch panel, applied
// just before iteration frame.
type touchStep struct {
	frame int
	down  bool
	x, y  uint16
}

type touchScript []touchStep

// touchPanel is the simulated controller a script drives.
type touchPanel interface {
	Touch(x, y uint16)
	Lift()
}

// parseScript reads whitespace-separated commands:
//
//	tap X Y      press at X,Y for one iteration, lift on the next
//	hold X Y N   press for N iterations, then lift
//	wait N       let N iterations pass
//
// Shell quoting and # comments are accepted, so scripts can live in files.
func parseScript(src string) (touchScript, error) {
	words, err := shlex.Split(src)
	if err != nil {
		return nil, errors.Wrap(err, "touch script")
	}
	var s touchScript
	frame := 0
	for i := 0; i < len(words); {
		cmd := words[i]
		switch cmd {
		case "tap", "hold":
			n := 3
			if cmd == "tap" {
				n = 2
			}
			args, err := numbers(cmd, words[i+1:], n)
			if err != nil {
				return nil, err
			}
			held := 1
			if cmd == "hold" {
				held = args[2]
				if held < 1 {
					return nil, errors.Errorf("hold: duration %d must be at least 1", held)
				}
			}
			x, y := uint16(args[0]), uint16(args[1])
			s = append(s,
				touchStep{frame: frame, down: true, x: x, y: y},
				touchStep{frame: frame + held})
			frame += held + 1
			i += 1 + n
		case "wait":
			args, err := numbers(cmd, words[i+1:], 1)
			if err != nil {
				return nil, err
			}
			frame += args[0]
			i += 2
		default:
			return nil, errors.Errorf("touch script: unknown command %q", cmd)
		}
	}
	return s, nil
}

func numbers(cmd string, words []string, n int) ([]int, error) {
	if len(words) < n {
		return nil, errors.Errorf("%s: want %d arguments, have %d", cmd, n, len(words))
	}
	out := make([]int, n)
	for i := range out {
		v, err := strconv.ParseUint(words[i], 10, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: argument %d", cmd, i+1)
		}
		out[i] = int(v)
	}
	return out, nil
}

// apply performs every step scheduled for frame.
func (s touchScript) apply(frame int, p touchPanel) {
	for _, st := range s {
		if st.frame != frame {
			continue
		}
		if st.down {
			p.Touch(st.x, st.y)
		} else {
			p.Lift()
		}
	}
}
