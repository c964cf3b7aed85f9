package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "import line",
			in:   "import { Tabs } from '@site/tabs'\n\n# Hello",
			want: "# Hello",
		},
		{
			name: "export line",
			in:   "export const meta = { title: 'x' }\n\nText",
			want: "Text",
		},
		{
			name: "self-closing component",
			in:   `Before <Callout type="info" /> after`,
			want: "Before  after",
		},
		{
			name: "paired component block",
			in:   "A\n<Tabs>\ninside\n</Tabs>\nB",
			want: "A\n\nB",
		},
		{
			name: "paired component with attributes",
			in:   `<Note title="x">hidden</Note>visible`,
			want: "visible",
		},
		{
			name: "unclosed component tag",
			in:   "<Foo>unclosed text",
			want: "unclosed text",
		},
		{
			name: "blank line runs collapse",
			in:   "a\n\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "import inside code fence is kept",
			in:   "```js\nimport x from 'y'\n```",
			want: "```js\nimport x from 'y'\n```",
		},
		{
			name: "lowercase html is kept",
			in:   "<div>x</div>",
			want: "<div>x</div>",
		},
		{
			name: "crlf normalised",
			in:   "a\r\n\r\n\r\n\r\nb",
			want: "a\n\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkup(tt.in))
		})
	}
}

func TestStripMarkup_NestedSameName_StopsAtFirstClose(t *testing.T) {
	// Given: nested components sharing a name
	in := "<Box>outer <Box>inner</Box> tail</Box>after"

	// When: stripping
	got := StripMarkup(in)

	// Then: the first close ends the block and the stray close is removed
	assert.Equal(t, "tailafter", got)
}
