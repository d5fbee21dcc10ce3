/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package widget

import (
	"fmt"
	"io"

	"github.com/timesync/timesync/display"
)

// Frame is everything a surface shows at one tick
type Frame struct {
	Local     string
	Reference string
	LastSync  string
	Server    string
	Status    display.Status
	Auto      string
}

// Renderer draws frames
type Renderer interface {
	Render(f *Frame) error
}

// frameLines is how many lines interactive frame takes
const frameLines = 3

// TermRenderer draws frames into a terminal. Interactive terminals get the frame
// redrawn in place, anything else gets one line per frame.
type TermRenderer struct {
	w           io.Writer
	interactive bool
	drawn       bool
}

// NewTermRenderer returns new TermRenderer
func NewTermRenderer(w io.Writer, interactive bool) *TermRenderer {
	return &TermRenderer{w: w, interactive: interactive}
}

// Render implements Renderer interface
func (r *TermRenderer) Render(f *Frame) error {
	if !r.interactive {
		_, err := fmt.Fprintf(r.w, "local: %s | reference: %s | %s | %s | %s\n", f.Local, f.Reference, f.LastSync, f.Status.Text, f.Auto)
		return err
	}
	if r.drawn {
		// cursor back to the first line of previous frame
		if _, err := fmt.Fprintf(r.w, "\033[%dA", frameLines); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(r.w,
		"\r\033[KLocal time:     %s\n\r\033[KReference time: %s (ref %s, %s)\n\r\033[K%s  [%s]  s: sync, a: auto, q: quit\n",
		f.Local, f.Reference, f.Server, f.LastSync, f.Status, f.Auto,
	)
	if err != nil {
		return err
	}
	r.drawn = true
	return nil
}
