package executor

import (
	"context"
	"net/url"
)

// ChoiceField is the form key under which a Surface reports which Choice
// the user picked on a screen that offers choices.
const ChoiceField = "__choice"

// Field is one input a stage wants rendered.
type Field struct {
	Name         string
	Label        string
	Secret       bool
	Autocomplete string
	// Errors are the field-level validation messages from the previous
	// submission, rendered adjacent to the input.
	Errors []string
}

// Choice is one selectable action, such as a device-picker entry.
type Choice struct {
	ID    string
	Label string
}

// Screen is the render model handed to a Surface. Stages build one per
// challenge; the executor never re-renders partially.
type Screen struct {
	Title  string
	Logo   string
	Intro  string
	// Banner holds non-field and ceremony errors, rendered near the top.
	Banner  []string
	Fields  []Field
	Choices []Choice
	// Submit labels the primary action of an interactive screen.
	Submit string
	// Busy marks a non-interactive waiting state (request in flight,
	// ceremony running).
	Busy bool
}

// Surface is the render sink a host injects: it paints screens and collects
// user input. Implementations own all presentation concerns; stages only
// describe what to show.
type Surface interface {
	// Present renders an interactive screen and blocks until the user
	// submits. The returned values carry one entry per field, plus
	// ChoiceField when the screen offered choices.
	Present(ctx context.Context, screen *Screen) (url.Values, error)

	// Display renders a screen that solicits no input.
	Display(screen *Screen)

	// Navigate leaves the flow for the given URL. Terminal.
	Navigate(ctx context.Context, to string) error

	// PostForm submits a server-synthesized form to an external endpoint,
	// the way a browser would auto-post it. Terminal.
	PostForm(ctx context.Context, action string, attrs map[string]string) error
}
