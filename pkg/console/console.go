// Package console is a terminal Surface: it renders screens as plain text
// and reads responses line by line from standard input.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goauthentik/authentik-sub006/pkg/executor"
	"github.com/goauthentik/authentik-sub006/pkg/options"
)

type Console struct {
	in     *bufio.Reader
	out    io.Writer
	hc     *http.Client
	logger *slog.Logger
}

var _ executor.Surface = (*Console)(nil)

func New(in io.Reader, out io.Writer, opts ...options.Option) *Console {
	oo := options.NewOptions(opts...)

	return &Console{
		in:     bufio.NewReader(in),
		out:    out,
		hc:     oo.HTTPClient,
		logger: oo.Logger,
	}
}

func (c *Console) render(screen *executor.Screen) {
	if screen.Title != "" {
		fmt.Fprintf(c.out, "== %s ==\n", screen.Title)
	}
	for _, msg := range screen.Banner {
		fmt.Fprintf(c.out, "! %s\n", msg)
	}
	if screen.Intro != "" {
		fmt.Fprintln(c.out, screen.Intro)
	}
}

// Display renders a non-interactive screen. Busy screens collapse to a
// single waiting line so round-trips stay visible without scrolling.
func (c *Console) Display(screen *executor.Screen) {
	if screen.Busy && screen.Title == "" && screen.Intro == "" && len(screen.Banner) == 0 {
		fmt.Fprintln(c.out, "...")
		return
	}
	c.render(screen)
	if screen.Busy {
		fmt.Fprintln(c.out, "...")
	}
}

// Present renders the screen and collects one line per field. Screens with
// choices show a numbered menu first and re-prompt until a listed entry is
// chosen.
func (c *Console) Present(_ context.Context, screen *executor.Screen) (url.Values, error) {
	c.render(screen)

	values := url.Values{}

	if len(screen.Choices) > 0 {
		choice, err := c.pickChoice(screen.Choices)
		if err != nil {
			return nil, err
		}
		values.Set(executor.ChoiceField, choice.ID)
	}

	for _, field := range screen.Fields {
		for _, msg := range field.Errors {
			fmt.Fprintf(c.out, "! %s\n", msg)
		}
		fmt.Fprintf(c.out, "%s: ", field.Label)
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		values.Set(field.Name, line)
	}

	if len(screen.Fields) == 0 && len(screen.Choices) == 0 && screen.Submit != "" {
		fmt.Fprintf(c.out, "[%s] press enter to continue\n", screen.Submit)
		if _, err := c.readLine(); err != nil {
			return nil, err
		}
	}

	return values, nil
}

func (c *Console) pickChoice(choices []executor.Choice) (executor.Choice, error) {
	for {
		for i, choice := range choices {
			fmt.Fprintf(c.out, "%d) %s\n", i+1, choice.Label)
		}
		fmt.Fprint(c.out, "> ")

		line, err := c.readLine()
		if err != nil {
			return executor.Choice{}, err
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(choices) {
			fmt.Fprintln(c.out, "! Please enter one of the listed numbers.")
			continue
		}

		return choices[n-1], nil
	}
}

// Navigate prints the continuation URL. A terminal has no document to
// replace, so finishing the flow is handed back to the user.
func (c *Console) Navigate(_ context.Context, to string) error {
	fmt.Fprintf(c.out, "Continue at: %s\n", to)
	return nil
}

// PostForm submits a server-synthesized form to its external endpoint, the
// same POST a browser would fire on load.
func (c *Console) PostForm(ctx context.Context, action string, attrs map[string]string) error {
	form := url.Values{}
	for name, value := range attrs {
		form.Set(name, value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("console: build form post: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("console: post form: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	c.logger.Debug("console: posted form", "action", action, "status", res.StatusCode)
	fmt.Fprintf(c.out, "Submitted to %s (%s)\n", action, res.Status)

	return nil
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("console: read input: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
