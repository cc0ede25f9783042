package filestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/galerie-tech/galerie/core/logger"
)

// LocalFilesystem stores images in a directory and serves them through the
// router under the configured public prefix.
type LocalFilesystem struct {
	baseFolder   string
	publicPrefix string
}

// NewLocalFilesystem returns a new local driver and mounts the file server
// route on the router.
func NewLocalFilesystem(router *mux.Router, config LocalConfiguration) (*LocalFilesystem, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("BasePath must not be empty")
	}
	prefix := config.PublicPrefix
	if prefix == "" {
		prefix = "/images/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if err := os.MkdirAll(config.BasePath, 0700); err != nil {
		return nil, err
	}
	f := LocalFilesystem{baseFolder: config.BasePath, publicPrefix: prefix}

	logger.Default().Debugln("filestore routes enabled")
	logger.Default().Debugln("  handle route:", prefix+"{key}", "GET")
	router.PathPrefix(prefix).Handler(
		http.StripPrefix(prefix, http.HandlerFunc(f.serve))).Methods(http.MethodGet)
	return &f, nil
}

func (f LocalFilesystem) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	if key == "" || strings.Contains(key, "..") {
		http.Error(w, ".. not authorized in keys", http.StatusBadRequest)
		return
	}
	http.ServeFile(w, r, filepath.Join(f.baseFolder, key))
}

// Save writes the object to disk and returns its public path.
func (f LocalFilesystem) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("'..' is not allowed in a key")
	}
	dstFile, err := os.Create(path.Join(f.baseFolder, key))
	if err != nil {
		return "", err
	}
	defer dstFile.Close()
	if _, err = io.Copy(dstFile, r); err != nil {
		return "", err
	}
	return f.publicPrefix + key, nil
}

// Delete removes the key's file.
func (f LocalFilesystem) Delete(ctx context.Context, key string) error {
	if strings.Contains(key, "..") {
		return fmt.Errorf("'..' is not allowed in a key")
	}
	err := os.Remove(path.Join(f.baseFolder, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
