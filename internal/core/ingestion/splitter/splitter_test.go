package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextReturnsSingleChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty text", text: ""},
		{name: "single word", text: "hello"},
		{name: "exactly chunk size", text: strings.Repeat("a", 1000)},
		{name: "japanese text", text: "これは短いテキストです。"},
		{name: "multibyte at exactly chunk size", text: strings.Repeat("あ", 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, 1000, 200)
			require.Len(t, chunks, 1)
			assert.Equal(t, tt.text, chunks[0])
		})
	}
}

func TestSplit_HardCutoffWithoutBreakPoints(t *testing.T) {
	// 区切り文字を一切含まない1200文字 → 強制分割で2チャンク
	text := strings.Repeat("x", 1200)

	chunks := Split(text, 1000, 200)

	require.Len(t, chunks, 2)
	assert.Equal(t, text[0:1000], chunks[0])
	assert.Equal(t, text[800:1200], chunks[1])
}

func TestSplit_HardCutoffKeepsMultibyteRunesIntact(t *testing.T) {
	// 区切り文字を一切含まない1200文字のマルチバイトテキスト
	// 強制分割でも文字の途中で切れず、各チャンクは正しいUTF-8のまま
	text := strings.Repeat("あ", 1200)
	runes := []rune(text)

	chunks := Split(text, 1000, 200)

	require.Len(t, chunks, 2)
	assert.Equal(t, string(runes[0:1000]), chunks[0])
	assert.Equal(t, string(runes[800:1200]), chunks[1])
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d", i)
	}
}

func TestSplit_MultibyteParagraphBreak(t *testing.T) {
	// 中間点より後ろの段落区切りはマルチバイトテキストでも文字数で判定される
	text := strings.Repeat("あ", 700) + "\n\n" + strings.Repeat("い", 600)

	chunks := Split(text, 1000, 200)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.Repeat("あ", 700)+"\n\n", chunks[0])
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d", i)
	}
}

func TestSplit_PrefersParagraphBreak(t *testing.T) {
	// 中間点より後ろに段落区切りを置く
	text := strings.Repeat("a", 700) + "\n\n" + strings.Repeat("b", 600)

	chunks := Split(text, 1000, 200)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.Repeat("a", 700)+"\n\n", chunks[0])
	// オーバーラップにより次チャンクは段落区切りの200文字手前から始まる
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], strings.Repeat("b", 600)))
}

func TestSplit_PrefersSentenceBreak(t *testing.T) {
	// 段落区切りなし、750文字目付近に文末
	text := strings.Repeat("a", 749) + ". " + strings.Repeat("b", 500)

	chunks := Split(text, 1000, 200)

	require.GreaterOrEqual(t, len(chunks), 2)
	// ピリオドを含めて出力される
	assert.Equal(t, strings.Repeat("a", 749)+".", chunks[0])
}

func TestSplit_FallsBackToSpaceBreak(t *testing.T) {
	// 文末記号なし、中間点より後ろにスペースのみ
	text := strings.Repeat("a", 800) + " " + strings.Repeat("b", 500)

	chunks := Split(text, 1000, 200)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.Repeat("a", 800)+" ", chunks[0])
}

func TestSplit_ForwardProgressAndTermination(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{name: "overlap equals size", text: strings.Repeat("x", 500), size: 100, overlap: 100},
		{name: "overlap exceeds size", text: strings.Repeat("x", 500), size: 100, overlap: 300},
		{name: "tiny window", text: strings.Repeat("y", 50), size: 3, overlap: 2},
		{name: "mixed content", text: strings.Repeat("word word. ", 200), size: 120, overlap: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.size, tt.overlap)
			require.NotEmpty(t, chunks)

			// 開始オフセットが厳密に単調増加することを検証
			start := 0
			prev := -1
			for i, chunk := range chunks {
				require.NotEmpty(t, chunk, "chunk %d", i)
				assert.Greater(t, start, prev, "chunk %d start must advance", i)
				assert.Equal(t, tt.text[start:start+len(chunk)], chunk, "chunk %d content", i)
				prev = start
				if i < len(chunks)-1 {
					next := start + len(chunk) - tt.overlap
					if next <= start {
						next = start + len(chunk)
					}
					start = next
				}
			}

			// 末尾チャンクは入力の末尾と一致する（全体被覆）
			last := chunks[len(chunks)-1]
			assert.True(t, strings.HasSuffix(tt.text, last))
		})
	}
}

func TestSplitter_SplitIsRestartable(t *testing.T) {
	s := New(100, 20)
	text := strings.Repeat("alpha beta gamma. ", 50)

	first := s.Split(text)
	second := s.Split(text)

	assert.Equal(t, first, second)
}

func TestNew_InvalidChunkSizeFallsBackToDefault(t *testing.T) {
	s := New(0, 200)
	chunks := s.Split(strings.Repeat("z", 500))
	require.Len(t, chunks, 1)
}
