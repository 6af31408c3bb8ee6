package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Esbuild transforms in-process
type Esbuild struct {
	options api.TransformOptions
}

// NewEsbuild creates the default transformer. JSX compiles to
// React.createElement calls, modules to CommonJS. Value imports are kept even
// when unused so every module reference reaches the restricted require.
func NewEsbuild() *Esbuild {
	return &Esbuild{
		options: api.TransformOptions{
			Loader:      api.LoaderTSX,
			Format:      api.FormatCommonJS,
			Target:      api.ES2017,
			JSXFactory:  "React.createElement",
			JSXFragment: "React.Fragment",
			Sourcefile:  "App.tsx",
			TsconfigRaw: `{"compilerOptions":{"verbatimModuleSyntax":true}}`,
			LogLevel:    api.LogLevelSilent,
		},
	}
}

// Name identifies the transformer in logs and metrics
func (e *Esbuild) Name() string {
	return "esbuild"
}

// Transform compiles source
func (e *Esbuild) Transform(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result := api.Transform(source, e.options)
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%w: %s", ErrTransform, formatMessages(result.Errors))
	}
	return string(result.Code), nil
}

func formatMessages(msgs []api.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			lines = append(lines, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		lines = append(lines, m.Text)
	}
	return strings.Join(lines, "; ")
}
