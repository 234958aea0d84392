// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package flv

import (
	"os"

	"github.com/q191201771/liverec/pkg/base"
)

type FlvFileWriter struct {
	fp   *os.File
	size uint64
}

func (ffw *FlvFileWriter) Open(filename string) (err error) {
	ffw.fp, err = os.Create(filename)
	ffw.size = 0
	return
}

func (ffw *FlvFileWriter) WriteFlvHeader() (err error) {
	if ffw.fp == nil {
		return base.ErrFlvFileClosed
	}
	_, err = ffw.fp.Write(FlvHeader)
	ffw.size += uint64(len(FlvHeader))
	return
}

func (ffw *FlvFileWriter) WriteTag(tag Tag) (err error) {
	if ffw.fp == nil {
		return base.ErrFlvFileClosed
	}
	_, err = ffw.fp.Write(tag.Raw)
	ffw.size += uint64(len(tag.Raw))
	return
}

func (ffw *FlvFileWriter) WriteRaw(b []byte) (err error) {
	if ffw.fp == nil {
		return base.ErrFlvFileClosed
	}
	_, err = ffw.fp.Write(b)
	ffw.size += uint64(len(b))
	return
}

// Size 已写入的字节数
func (ffw *FlvFileWriter) Size() uint64 {
	return ffw.size
}

func (ffw *FlvFileWriter) Name() string {
	if ffw.fp == nil {
		return ""
	}
	return ffw.fp.Name()
}

func (ffw *FlvFileWriter) Dispose() error {
	if ffw.fp == nil {
		return base.ErrFlvFileClosed
	}
	fp := ffw.fp
	ffw.fp = nil
	return fp.Close()
}
