package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ReadMultipartFile(file *multipart.FileHeader) ([]byte, error)
}

type utils struct {
	maxReadSize int64
}

// New returns helpers that refuse to buffer uploads larger than maxReadSize
// bytes. A non-positive value disables the cap.
func New(maxReadSize int64) IUtils {
	return &utils{
		maxReadSize: maxReadSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ReadMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	if file == nil {
		return nil, errors.New("no file uploaded")
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if u.maxReadSize > 0 {
		r = io.LimitReader(f, u.maxReadSize+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if u.maxReadSize > 0 && int64(len(data)) > u.maxReadSize {
		return nil, fmt.Errorf("upload exceeds %d bytes", u.maxReadSize)
	}

	return data, nil
}
