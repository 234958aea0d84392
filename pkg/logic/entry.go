// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/naza/pkg/bininfo"
	"github.com/q191201771/naza/pkg/nazalog"
)

// Entry 加载配置文件并启动一次录制会话，阻塞直到流结束，出错或收到退出信号
func Entry(confFile string) {
	config, err := LoadConf(confFile)
	if err != nil {
		nazalog.Errorf("load conf failed. file=%s, err=%+v", confFile, err)
		os.Exit(1)
	}
	if err = nazalog.Init(func(option *nazalog.Option) {
		*option = config.Log
	}); err != nil {
		nazalog.Errorf("init log failed. err=%+v", err)
		os.Exit(1)
	}
	defer nazalog.Sync()
	nazalog.Infof("initial log succ. conf file=%s", confFile)
	nazalog.Infof("bininfo: %s", bininfo.StringifySingleLine())
	nazalog.Infof("version: %s", base.LiverecFullInfo)

	session := NewSession(config)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c
		nazalog.Infof("recv signal, close session. signal=%s", sig.String())
		session.Dispose()
	}()

	if err = session.Run(); err != nil {
		nazalog.Errorf("session ended with error. err=%+v", err)
		os.Exit(1)
	}
	nazalog.Info("session ended.")
}
