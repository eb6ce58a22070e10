/*
Copyright 2022 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package git

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/sirupsen/logrus"
	"sigs.k8s.io/release-utils/util"
)

const defaultRemote = "origin"

const (
	LabelSource   = "org.opencontainers.image.source"
	LabelRevision = "org.opencontainers.image.revision"
)

// Repository is the checkout a system test is run from
type Repository struct {
	Options Options
}

type Options struct {
	CWD    string
	Remote string
}

func NewRepository(dir string) *Repository {
	return &Repository{
		Options: Options{
			CWD:    dir,
			Remote: defaultRemote,
		},
	}
}

func (r *Repository) isRepo() bool {
	return util.Exists(filepath.Join(r.Options.CWD, ".git"))
}

// SourceURL returns the first URL of the remote, empty when the
// directory is not a git repository
func (r *Repository) SourceURL() (string, error) {
	if !r.isRepo() {
		logrus.Debugf("Directory %s is not a git repository", r.Options.CWD)
		return "", nil
	}

	repo, err := gogit.PlainOpen(r.Options.CWD)
	if err != nil {
		return "", fmt.Errorf("opening git repo at %s: %w", r.Options.CWD, err)
	}

	remote, err := repo.Remote(r.Options.Remote)
	if err != nil {
		return "", fmt.Errorf("getting repository remote: %w", err)
	}

	if len(remote.Config().URLs) == 0 {
		return "", errors.New("repo remote does not have URLs")
	}

	return remote.Config().URLs[0], nil
}

// Revision returns the commit checked out, empty when the directory is
// not a git repository
func (r *Repository) Revision() (string, error) {
	if !r.isRepo() {
		return "", nil
	}
	repo, err := gogit.PlainOpen(r.Options.CWD)
	if err != nil {
		return "", fmt.Errorf("opening git repo at %s: %w", r.Options.CWD, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// ImageLabels returns the OCI labels describing where an image was built
// from. Lookup failures only drop the affected label.
func (r *Repository) ImageLabels() map[string]string {
	labels := map[string]string{}
	if url, err := r.SourceURL(); err != nil {
		logrus.Debugf("Not labeling image source: %v", err)
	} else if url != "" {
		labels[LabelSource] = url
	}
	if rev, err := r.Revision(); err != nil {
		logrus.Debugf("Not labeling image revision: %v", err)
	} else if rev != "" {
		labels[LabelRevision] = rev
	}
	return labels
}
