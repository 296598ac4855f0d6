package document

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// 拡張子からContent-Typeへのマッピング
// 未知の拡張子は text/plain として扱う
var contentTypesByExt = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
	".csv":  "text/csv",
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".xml":  "application/xml",
}

// ExtractText はアップロードされたファイルからテキストとContent-Typeを取り出す
// UTF-8として解釈できない場合は ErrUnsupportedEncoding、
// 空白のみの場合は ErrEmptyDocument を返す
func ExtractText(filename string, content []byte) (string, string, error) {
	if !utf8.Valid(content) {
		return "", "", fmt.Errorf("%s: %w", filename, ErrUnsupportedEncoding)
	}

	text := string(content)
	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("%s: %w", filename, ErrEmptyDocument)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := contentTypesByExt[ext]
	if !ok {
		contentType = "text/plain"
	}

	return text, contentType, nil
}
