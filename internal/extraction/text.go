package extraction

import (
	"bytes"
	"context"
	"strings"

	"github.com/cloo-solutions/talentlens/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainText decodes text uploads as UTF-8, replacing invalid sequences.
type PlainText struct{}

func (PlainText) extract(_ context.Context, file domain.UploadedFile) (string, error) {
	data := bytes.TrimPrefix(file.Data, utf8BOM)
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
