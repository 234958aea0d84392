// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package flv

import (
	"io"
	"os"

	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazalog"
)

type FlvFileReader struct {
	fp *os.File
}

func (ffr *FlvFileReader) Open(filename string) (err error) {
	ffr.fp, err = os.Open(filename)
	return
}

// ReadFlvHeader 读取并校验9字节file header加4字节prev tag size
func (ffr *FlvFileReader) ReadFlvHeader() (FileHeader, error) {
	b := make([]byte, flvHeaderSize)
	if _, err := io.ReadFull(ffr.fp, b); err != nil {
		return FileHeader{}, err
	}
	h, err := ParseFileHeader(b)
	if err != nil {
		return h, err
	}
	// data offset超过9时跳过中间的保留字节
	if h.DataOffset > 9 {
		if _, err = ffr.fp.Seek(int64(h.DataOffset)+prevTagSizeFieldSize, 0); err != nil {
			return h, err
		}
	} else if prevTagSize := bele.BeUint32(b[9:]); prevTagSize != 0 {
		nazalog.Warnf("flv first prev tag size not zero. prevTagSize=%d", prevTagSize)
	}
	return h, nil
}

func (ffr *FlvFileReader) ReadTag() (Tag, error) {
	return readTag(ffr.fp)
}

func (ffr *FlvFileReader) Dispose() {
	if ffr.fp != nil {
		_ = ffr.fp.Close()
	}
}
