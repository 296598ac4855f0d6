package splitter

const (
	// DefaultChunkSize はデフォルトのチャンクサイズ（文字数）
	DefaultChunkSize = 1000
	// DefaultChunkOverlap はデフォルトのチャンク間オーバーラップ（文字数）
	DefaultChunkOverlap = 200
)

// Splitter はテキストを意味的な区切りを優先しつつ固定長前後のチャンクに分割する
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// New は新しい Splitter を作成する
func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split はテキストをチャンクに分割する
// 同じ入力に対して常に同じ結果を返す純粋関数として振る舞う
func (s *Splitter) Split(text string) []string {
	return Split(text, s.chunkSize, s.chunkOverlap)
}

// Split はテキストを chunkSize 前後のチャンクに分割する
// 長さはすべて文字（rune）単位で数え、マルチバイト文字の途中では切らない
// 区切り位置は以下の優先順で探索する:
//  1. ウィンドウ中間点より後ろの段落区切り（空行）
//  2. 文末記号（`.` は後続の空白を要求、`!` `?` は中間点より後ろ）
//  3. 中間点より後ろのスペース
//  4. 見つからない場合はウィンドウ末尾で強制分割
//
// 次のチャンクは end - chunkOverlap から始まる。進行しない場合は
// end から始めることで無限ループを防ぐ（前進保証）
func Split(text string, chunkSize, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		// 残りが1ウィンドウに収まる場合はそのまま出力して終了
		if start+chunkSize >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		end := start + chunkSize
		mid := start + chunkSize/2

		if p := lastParagraphBreak(runes, start, end); p != -1 && p > mid {
			// 段落区切り（空行を含めて出力）
			end = p + 2
		} else if sentence := findSentenceEnd(runes, start, end, mid); sentence != -1 {
			// 文末記号を含めて出力
			end = sentence + 1
		} else if sp := lastRuneIndex(runes, start, end, ' '); sp != -1 && sp > mid {
			// スペースを含めて出力
			end = sp + 1
		}

		chunks = append(chunks, string(runes[start:end]))

		next := end - chunkOverlap
		if next <= start {
			// 前進保証: オーバーラップ過大でも必ず進む
			next = end
		}
		start = next
	}

	return chunks
}

// lastParagraphBreak は [start, end) 内で最後に現れる空行（連続する改行2つ）
// の開始位置を返す。見つからない場合は -1 を返す
func lastParagraphBreak(runes []rune, start, end int) int {
	for i := end - 2; i >= start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// findSentenceEnd は [start, end) 内の文末位置を探す
// `.` は直後に空白または改行が続く位置をウィンドウ末尾から後方へ探索する
// `!` `?` は最後の出現位置を中間点より後ろに限って採用する
func findSentenceEnd(runes []rune, start, end, mid int) int {
	for i := end - 1; i > start; i-- {
		if i < len(runes)-1 && runes[i] == '.' && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			return i
		}
	}

	for _, punct := range []rune{'!', '?'} {
		if idx := lastRuneIndex(runes, start, end, punct); idx != -1 && idx > mid {
			return idx
		}
	}

	return -1
}

// lastRuneIndex は [start, end) 内で r が最後に現れる位置を返す
// 見つからない場合は -1 を返す
func lastRuneIndex(runes []rune, start, end int, r rune) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
