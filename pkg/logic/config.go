// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"encoding/json"
	"io/ioutil"

	"github.com/q191201771/naza/pkg/nazajson"
	"github.com/q191201771/naza/pkg/nazalog"
)

type Config struct {
	Pull   Pull           `json:"pull"`
	Record Record         `json:"record"`
	Log    nazalog.Option `json:"log"`
}

type Pull struct {
	Url              string `json:"url"`
	ConnectTimeoutMs int    `json:"connect_timeout_ms"`
	ReadTimeoutMs    int    `json:"read_timeout_ms"`
}

type Record struct {
	OutPath string `json:"out_path"`
	// StreamName 为空时从拉流url的路径中取
	StreamName string `json:"stream_name"`
	// MaxFileSizeBytes 单个分段文件的大小上限，0表示不限制
	MaxFileSizeBytes uint64 `json:"max_file_size_bytes"`
	// MaxDurationMs 单个分段文件的时长上限，0表示不限制
	MaxDurationMs uint32 `json:"max_duration_ms"`
}

func LoadConf(confFile string) (*Config, error) {
	var config Config
	rawContent, err := ioutil.ReadFile(confFile)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(rawContent, &config); err != nil {
		return nil, err
	}

	// 没有配置的字段使用默认值
	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, err
	}
	if !j.Exist("pull.connect_timeout_ms") {
		config.Pull.ConnectTimeoutMs = 5000
	}
	if !j.Exist("pull.read_timeout_ms") {
		config.Pull.ReadTimeoutMs = 10000
	}
	if !j.Exist("record.out_path") {
		config.Record.OutPath = "./out"
	}
	if !j.Exist("log.level") {
		config.Log.Level = nazalog.LevelDebug
	}
	if !j.Exist("log.filename") {
		config.Log.Filename = "./logs/liverec.log"
	}
	if !j.Exist("log.is_to_stdout") {
		config.Log.IsToStdout = true
	}
	if !j.Exist("log.is_rotate_daily") {
		config.Log.IsRotateDaily = true
	}
	if !j.Exist("log.short_file_flag") {
		config.Log.ShortFileFlag = true
	}
	config.Log.AssertBehavior = nazalog.AssertFatal

	return &config, nil
}
