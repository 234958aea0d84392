// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package record

type Option struct {
	// OutPath 输出文件所在目录
	OutPath string

	// StreamName 流名称，用于生成输出文件名
	StreamName string

	// MaxFileSizeBytes 单个分段文件的大小上限，0表示不限制
	MaxFileSizeBytes uint64

	// MaxDurationMs 单个分段文件的时长上限，单位毫秒，0表示不限制
	MaxDurationMs uint32
}

var defaultOption = Option{
	OutPath:          ".",
	StreamName:       "liverec",
	MaxFileSizeBytes: 0,
	MaxDurationMs:    0,
}

type ModOption func(option *Option)
