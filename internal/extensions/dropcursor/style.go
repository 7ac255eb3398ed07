package dropcursor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/loom/internal/option"
)

var themeToken = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Style is the CSS applied to the cursor elements.
type Style struct {
	Block  map[string]string
	Inline map[string]string
}

// Style returns the element styles for the current options.
func (e *Extension) Style() (Style, error) {
	opts := e.Options()
	color, err := resolveColor(opts.String("color"))
	if err != nil {
		return Style{}, err
	}
	return Style{
		Block: map[string]string{
			"width":            opts.String("blockWidth"),
			"height":           opts.String("blockHeight"),
			"background-color": color,
		},
		Inline: map[string]string{
			"width":            opts.String("inlineWidth"),
			"margin-left":      "-" + opts.String("inlineSpacing"),
			"margin-right":     "-" + opts.String("inlineSpacing"),
			"background-color": color,
		},
	}, nil
}

// resolveColor turns a hex color into canonical #rrggbb form and a theme
// token such as "primary" into its CSS variable.
func resolveColor(c string) (string, error) {
	c = strings.TrimSpace(c)
	if strings.HasPrefix(c, "#") {
		if len(c) == 4 {
			c = "#" + strings.Repeat(c[1:2], 2) + strings.Repeat(c[2:3], 2) + strings.Repeat(c[3:4], 2)
		}
		col, err := colorful.Hex(c)
		if err != nil {
			return "", fmt.Errorf("%w: color %q: %v", option.ErrInvalidExtensionOptions, c, err)
		}
		return col.Clamped().Hex(), nil
	}
	if themeToken.MatchString(c) {
		return "var(--loom-color-" + c + ")", nil
	}
	return "", fmt.Errorf("%w: color %q is neither a hex color nor a theme token", option.ErrInvalidExtensionOptions, c)
}
