// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package flv

import (
	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabytes"
	"github.com/q191201771/naza/pkg/nazalog"
)

// StreamReader 增量式的flv流解析器
//
// 对接网络上的直播流，喂入的数据不需要和tag边界对齐。
// ReadNextTag返回base.ErrFlvIncomplete表示缓存的数据不够，Feed更多数据后再调用即可，
// 解析会从同一个游标位置恢复，不会吐出半个tag，也不会丢字节
type StreamReader struct {
	buf *nazabytes.Buffer

	fileHeaderParsed bool
	fileHeader       FileHeader

	offset uint64 // 整条流上已消耗的字节数，只用于错误信息定位
}

func NewStreamReader() *StreamReader {
	return &StreamReader{
		buf: nazabytes.NewBuffer(16384),
	}
}

func (r *StreamReader) Feed(b []byte) {
	r.buf.Write(b)
}

// BufLen 当前缓存的未消耗字节数，流正常结束时应该为0
func (r *StreamReader) BufLen() int {
	return r.buf.Len()
}

// FileHeader 第2个返回值表示file header是否已经解析出来
func (r *StreamReader) FileHeader() (FileHeader, bool) {
	return r.fileHeader, r.fileHeaderParsed
}

// ReadNextTag 解析下一个完整的tag
//
// 第一次成功前会先消耗并校验file header以及后面4字节为0的prev tag size。
// 签名或version错误是致命的格式错误，即使数据还没凑齐一个tag也能立即给出，
// 而数据不足只返回base.ErrFlvIncomplete
func (r *StreamReader) ReadNextTag() (tag Tag, err error) {
	if !r.fileHeaderParsed {
		if err = r.parseFileHeader(); err != nil {
			return
		}
	}

	b := r.buf.Bytes()
	if len(b) < TagHeaderSize {
		return tag, base.ErrFlvIncomplete
	}
	t := b[0]
	if t != TagTypeAudio && t != TagTypeVideo && t != TagTypeMetadata {
		return tag, base.NewErrFlvFormat(r.offset, "invalid tag type")
	}
	header := parseTagHeader(b)
	needed := TagHeaderSize + int(header.DataSize) + prevTagSizeFieldSize
	if len(b) < needed {
		return tag, base.ErrFlvIncomplete
	}

	prevTagSize := bele.BeUint32(b[TagHeaderSize+int(header.DataSize):])
	if prevTagSize != uint32(TagHeaderSize)+header.DataSize {
		nazalog.Warnf("flv prev tag size not match. offset=%d, prevTagSize=%d, expected=%d",
			r.offset, prevTagSize, uint32(TagHeaderSize)+header.DataSize)
	}

	tag.Header = header
	// 拷贝出来，缓存的内存块会被后续数据复用
	tag.Raw = append(tag.Raw, b[:needed]...)
	r.buf.Skip(needed)
	r.offset += uint64(needed)
	return tag, nil
}

func (r *StreamReader) parseFileHeader() error {
	if r.buf.Len() < 9 {
		return base.ErrFlvIncomplete
	}
	h, err := ParseFileHeader(r.buf.Bytes())
	if err != nil {
		return err
	}
	needed := int(h.DataOffset) + prevTagSizeFieldSize
	if r.buf.Len() < needed {
		return base.ErrFlvIncomplete
	}
	prevTagSize := bele.BeUint32(r.buf.Bytes()[h.DataOffset:])
	if prevTagSize != 0 {
		nazalog.Warnf("flv first prev tag size not zero. prevTagSize=%d", prevTagSize)
	}
	r.fileHeader = h
	r.fileHeaderParsed = true
	r.buf.Skip(needed)
	r.offset += uint64(needed)
	return nil
}
