package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jubily/internal/ports"
)

// LocalFS implements ports.StorageProvider using the local filesystem.
// Objects live under root and are served at publicBase by the API process.
type LocalFS struct {
	root       string
	publicBase string
}

func New(root, publicBase string) *LocalFS {
	return &LocalFS{root: root, publicBase: strings.TrimRight(publicBase, "/")}
}

func (l *LocalFS) Provider() string { return "localfs" }

func (l *LocalFS) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	dst := filepath.Join(l.root, filepath.FromSlash(in.ObjectKey))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.PutObjectOutput{}, err
	}

	outF, err := os.Create(dst)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	defer outF.Close()

	n, err := io.Copy(outF, in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}

	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: n}, nil
}

func (l *LocalFS) PublicURL(objectKey string) string {
	return l.publicBase + "/" + strings.TrimLeft(objectKey, "/")
}

func (l *LocalFS) OwnsURL(url string) bool {
	return l.publicBase != "" && strings.HasPrefix(url, l.publicBase+"/")
}
