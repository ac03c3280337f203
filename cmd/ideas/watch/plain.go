package watchcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/ideas/pkg/client"
)

// plainPrinter writes the text of successive states as deltas, so a pipe
// receives each fragment once.
type plainPrinter struct {
	w       io.Writer
	printed string
}

func (p *plainPrinter) update(st client.State) {
	switch st.Phase {
	case client.Streaming, client.Completed:
	default:
		return
	}
	if st.Text == client.LoadingText {
		return
	}

	if !strings.HasPrefix(st.Text, p.printed) {
		// A reconnection restarted the stream.
		fmt.Fprintln(p.w)
		p.printed = ""
	}

	fmt.Fprint(p.w, st.Text[len(p.printed):])
	p.printed = st.Text
}

// runPlain mounts one session and writes it to w until it ends or ctx is
// done.
func runPlain(ctx context.Context, cl *client.Client, w io.Writer) (client.State, error) {
	p := &plainPrinter{w: w}
	sess := cl.Mount(ctx, p.update)
	defer sess.Unmount()

	<-sess.Done()
	st := sess.State()

	if p.printed != "" && !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(w)
	}
	if st.Phase == client.Errored && st.Text == client.AuthRequiredText {
		fmt.Fprintln(w, client.AuthRequiredText)
	}
	return st, nil
}
