// Copyright © 2017 Heptio
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

// Package logrusadapter provides a logrus-backed implementation of the
// log.Logger interface, plus a bridge to the logr.Logger shape expected
// by the handful of callbacks (waitset timers, backoff notifications)
// that were written against logr.
package logrusadapter

import (
	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"

	"github.com/heptio-dds/ddscore/internal/log"
)

// New returns a log.Logger backed by the given logrus entry.
func New(entry *logrus.Entry) log.Logger {
	return &adapter{entry: entry, level: 0}
}

// NewFromLogger returns a log.Logger backed by a bare *logrus.Logger.
func NewFromLogger(l *logrus.Logger) log.Logger {
	return New(logrus.NewEntry(l))
}

// Logr adapts a logrus entry to a logr.Logger, named after the entry's
// "context" field, for callbacks in the corpus that only know about
// the controller-runtime logging shape.
func Logr(entry *logrus.Entry) logr.Logger {
	name, _ := entry.Data["context"].(string)
	return logrusr.New(entry.Logger).WithName(name)
}

type adapter struct {
	entry *logrus.Entry
	level int
}

func (a *adapter) Infof(format string, args ...interface{}) {
	a.entry.Logger.WithFields(a.entry.Data).Debugf(format, args...)
	if a.level == 0 {
		a.entry.Logger.WithFields(a.entry.Data).Infof(format, args...)
	}
}

func (a *adapter) Error(args ...interface{}) {
	a.entry.WithFields(a.entry.Data).Error(args...)
}

func (a *adapter) Errorf(format string, args ...interface{}) {
	a.entry.WithFields(a.entry.Data).Errorf(format, args...)
}

func (a *adapter) V(level int) log.InfoLogger {
	return &adapter{entry: a.entry, level: level}
}

func (a *adapter) WithPrefix(prefix string) log.Logger {
	return &adapter{entry: a.entry.WithField("context", prefix), level: a.level}
}
