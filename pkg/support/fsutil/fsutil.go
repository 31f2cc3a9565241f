// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fsutil contains utilities for working with the file system paths given in the command line.
package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileExists returns whether the file or directory exists, or an error if something went wrong in the filesystem.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to FileExists(%q)", path)
}

// MustFileExists is like FileExists, but panics on file system errors.
func MustFileExists(path string) bool {
	exists, err := FileExists(path)
	if err != nil {
		panic(err)
	}
	return exists
}

// ReplaceTildeInDir replaces a leading "~" or "~user" by the home directory of the current user, or of the
// given user. Other paths are returned unchanged.
func ReplaceTildeInDir(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~") {
		return dir, nil
	}
	userName, rest, _ := strings.Cut(dir[1:], "/")
	var homeDir string
	if userName == "" {
		var err error
		homeDir, err = os.UserHomeDir()
		if err != nil {
			return "", errors.Wrapf(err, "failed to find the home directory for path %q", dir)
		}
	} else {
		usr, err := user.Lookup(userName)
		if err != nil {
			return "", errors.Wrapf(err, "failed to lookup home directory of user %q in path %q", userName, dir)
		}
		homeDir = usr.HomeDir
	}
	return filepath.Join(homeDir, rest), nil
}
