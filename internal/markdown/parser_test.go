package markdown

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/techplus-rag/internal/domain"
)

const policyDoc = `# Chính sách

Giới thiệu chung.

## Bảo hành

Sản phẩm được bảo hành 36 tháng.

- Lỗi phần cứng
- Lỗi nhà sản xuất
  - Nested item

### Điều kiện

Còn tem bảo hành.

## Đổi trả

Đổi trả trong 7 ngày.
`

// TestParse_SectionsAndPaths tests titles, levels, paths and bodies in document order.
func TestParse_SectionsAndPaths(t *testing.T) {
	sections, err := NewParser().Parse([]byte(policyDoc))
	require.NoError(t, err)
	require.Len(t, sections, 4)

	assert.Equal(t, "Chính sách", sections[0].Title)
	assert.Equal(t, 1, sections[0].Level)
	assert.Equal(t, "Chính sách", sections[0].Path)
	assert.Equal(t, "Giới thiệu chung.", sections[0].Body)

	assert.Equal(t, "Chính sách / Bảo hành", sections[1].Path)
	assert.Equal(t, "Sản phẩm được bảo hành 36 tháng.\n- Lỗi phần cứng\n- Lỗi nhà sản xuất\n  - Nested item", sections[1].Body)

	assert.Equal(t, 3, sections[2].Level)
	assert.Equal(t, "Chính sách / Bảo hành / Điều kiện", sections[2].Path)

	assert.Equal(t, "Chính sách / Đổi trả", sections[3].Path)
	assert.Equal(t, "Đổi trả trong 7 ngày.", sections[3].Body)

	for i, s := range sections {
		assert.Equal(t, i, s.Index)
		assert.NotEmpty(t, s.Anchor)
	}
}

// TestParse_Parents tests that each section hangs off the nearest shallower heading.
func TestParse_Parents(t *testing.T) {
	sections, err := NewParser().Parse([]byte(policyDoc))
	require.NoError(t, err)

	assert.Nil(t, sections[0].Parent)
	assert.Same(t, sections[0], sections[1].Parent)
	assert.Same(t, sections[1], sections[2].Parent)
	assert.Same(t, sections[0], sections[3].Parent)
	assert.Len(t, sections[0].Children, 2)

	roots := Roots(sections)
	require.Len(t, roots, 1)
	assert.Same(t, sections[0], roots[0])
}

// TestParse_DeeperLevelsReset tests that a heading clears every deeper path level.
func TestParse_DeeperLevelsReset(t *testing.T) {
	input := "# A\n\n## B\n\n### C\n\n## D\n\n### E\n\ntext\n"
	sections, err := NewParser().Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, sections, 5)

	assert.Equal(t, "A / D / E", sections[4].Path)
	assert.Same(t, sections[3], sections[4].Parent)
}

// TestParse_SkippedLevel tests paths and parents when a level is skipped.
func TestParse_SkippedLevel(t *testing.T) {
	sections, err := NewParser().Parse([]byte("# A\n\n### C\n\nbody\n"))
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "A / C", sections[1].Path)
	assert.Same(t, sections[0], sections[1].Parent)
}

func TestParse_InlineFormattingInHeading(t *testing.T) {
	sections, err := NewParser().Parse([]byte("## **Bảo hành** `v2`\n\nNội dung *quan trọng* với [liên kết](https://example.com).\n"))
	require.NoError(t, err)
	require.Len(t, sections, 1)

	assert.Equal(t, "Bảo hành v2", sections[0].Title)
	assert.Equal(t, "Nội dung quan trọng với liên kết.", sections[0].Body)
}

// TestParse_Preamble tests that content before the first heading lands in a preamble section.
func TestParse_Preamble(t *testing.T) {
	input := "Intro line.\n\n# Title\n\nBody\n"

	sections, err := NewParser().Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.True(t, sections[0].Preamble)
	assert.Equal(t, 0, sections[0].Level)
	assert.Equal(t, "", sections[0].Path)
	assert.Equal(t, "Intro line.", sections[0].Body)
	assert.Nil(t, sections[1].Parent, "preamble is never a parent")

	_, err = NewParser(WithStrictPreamble()).Parse([]byte(input))
	assert.True(t, errors.Is(err, domain.ErrMalformedDocument))
}

func TestParse_RejectsMalformedInput(t *testing.T) {
	inputs := map[string][]byte{
		"empty":        []byte("  \n\n"),
		"invalid utf8": {'#', ' ', 0xff, 0xfe},
		"nul byte":     []byte("# A\n\nx\x00y"),
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := NewParser().Parse(input)
			if !errors.Is(err, domain.ErrMalformedDocument) {
				t.Errorf("expected ErrMalformedDocument, got %v", err)
			}
		})
	}
}

func TestParse_CodeBlockKept(t *testing.T) {
	input := "# Hotline\n\n```\n1800 6868\n1800 6869\n```\n"
	sections, err := NewParser().Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "1800 6868\n1800 6869", sections[0].Body)
}
