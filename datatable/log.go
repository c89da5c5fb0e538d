// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datatable

import (
	"sync"

	"github.com/go-logr/logr"
)

var (
	loggerMu sync.RWMutex
	logger   = logr.Discard()
)

// SetLogger installs the logger used by this package and its siblings.
// A logger without a sink is replaced by logr.Discard().
func SetLogger(l logr.Logger) {
	if l.GetSink() == nil {
		l = logr.Discard()
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// Logger returns the package logger.
func Logger() logr.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func log() logr.Logger {
	return Logger().WithName("datatable")
}
