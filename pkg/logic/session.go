// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"net/url"
	"strings"

	"github.com/q191201771/liverec/pkg/flv"
	"github.com/q191201771/liverec/pkg/httpflv"
	"github.com/q191201771/liverec/pkg/record"
	"github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/naza/pkg/unique"
)

// Session 一条流的录制会话，拉流和落盘串在一个流水线里
//
// 多条流各自创建独立的Session，相互之间不共享任何可变状态
type Session struct {
	UniqueKey string

	config *Config

	pullSession *httpflv.PullSession
	recorder    *record.Recorder

	writeErr error
}

func NewSession(config *Config) *Session {
	uk := unique.GenUniqueKey("SESSION")
	nazalog.Infof("[%s] lifecycle new logic.Session. url=%s", uk, config.Pull.Url)
	return &Session{
		UniqueKey: uk,
		config:    config,
	}
}

// Run 阻塞直到流结束或出错
func (s *Session) Run() error {
	streamName := s.config.Record.StreamName
	if streamName == "" {
		streamName = streamNameFromUrl(s.config.Pull.Url)
	}

	s.recorder = record.NewRecorder(func(option *record.Option) {
		option.OutPath = s.config.Record.OutPath
		option.StreamName = streamName
		option.MaxFileSizeBytes = s.config.Record.MaxFileSizeBytes
		option.MaxDurationMs = s.config.Record.MaxDurationMs
	})
	s.pullSession = httpflv.NewPullSession(func(option *httpflv.PullSessionOption) {
		option.ConnectTimeoutMs = s.config.Pull.ConnectTimeoutMs
		option.ReadTimeoutMs = s.config.Pull.ReadTimeoutMs
	})

	err := s.pullSession.Pull(s.config.Pull.Url, func(tag flv.Tag) {
		if wErr := s.recorder.WriteTag(tag); wErr != nil {
			nazalog.Errorf("[%s] write tag failed, stop pulling. err=%+v", s.UniqueKey, wErr)
			s.writeErr = wErr
			s.pullSession.Dispose()
		}
	})

	if dErr := s.recorder.Dispose(); dErr != nil {
		nazalog.Errorf("[%s] dispose recorder failed. err=%+v", s.UniqueKey, dErr)
	}
	for _, filename := range s.recorder.Filenames() {
		nazalog.Infof("[%s] output file. filename=%s", s.UniqueKey, filename)
	}

	if s.writeErr != nil {
		return s.writeErr
	}
	return err
}

// Dispose 主动停止录制，Run会随之返回
func (s *Session) Dispose() {
	nazalog.Infof("[%s] lifecycle dispose logic.Session.", s.UniqueKey)
	if s.pullSession != nil {
		s.pullSession.Dispose()
	}
}

func streamNameFromUrl(rawUrl string) string {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return "liverec"
	}
	name := u.Path
	if index := strings.LastIndexByte(name, '/'); index != -1 {
		name = name[index+1:]
	}
	name = strings.TrimSuffix(name, ".flv")
	if name == "" {
		return "liverec"
	}
	return name
}
