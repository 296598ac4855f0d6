package document

import "errors"

var (
	// ErrNotFound は指定されたドキュメントが存在しないことを表す
	ErrNotFound = errors.New("document not found")

	// ErrUnsupportedEncoding はUTF-8として解釈できないファイルを表す
	ErrUnsupportedEncoding = errors.New("file content is not valid UTF-8")

	// ErrEmptyDocument は中身が空のファイルを表す
	ErrEmptyDocument = errors.New("document content is empty")
)
