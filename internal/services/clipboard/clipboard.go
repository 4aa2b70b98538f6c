// Package clipboard provides the sinks a finished document is written to.
package clipboard

import (
	"io"

	"github.com/atotto/clipboard"

	"github.com/temirov/fileprompt/internal/types"
)

// Copier copies textual data to a clipboard-like sink.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	return clipboard.WriteAll(text)
}

// WriterService implements Copier by writing the text to an io.Writer.
type WriterService struct {
	writer io.Writer
}

// NewWriterService returns a Copier that writes to writer.
func NewWriterService(writer io.Writer) *WriterService {
	return &WriterService{writer: writer}
}

// Copy writes text to the underlying writer.
func (service *WriterService) Copy(text string) error {
	_, writeError := io.WriteString(service.writer, text)
	return writeError
}

// Select returns the writer sink for the stdout mode or when no system
// clipboard is available, and the system clipboard otherwise.
func Select(mode string, fallback io.Writer) Copier {
	if mode == types.ClipboardStdout || clipboard.Unsupported {
		return NewWriterService(fallback)
	}
	return NewService()
}

var (
	_ Copier = (*Service)(nil)
	_ Copier = (*WriterService)(nil)
)
