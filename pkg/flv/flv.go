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
)

// <video_file_format_spec_v10.pdf>
// <The FLV header> <page 8/48>
// <FLV tags> <page 9/48>

const (
	TagTypeAudio    uint8 = 8
	TagTypeVideo    uint8 = 9
	TagTypeMetadata uint8 = 18
)

const (
	TagHeaderSize        = 11
	prevTagSizeFieldSize = 4
	flvHeaderSize        = 13 // 9字节的file header加4字节为0的prev tag size
)

const (
	frameTypeKey   uint8 = 1
	frameTypeInter uint8 = 2

	codecIdAvc  uint8 = 7
	codecIdHevc uint8 = 12

	AvcKeyFrame   = frameTypeKey<<4 | codecIdAvc
	AvcInterFrame = frameTypeInter<<4 | codecIdAvc

	HevcKeyFrame   = frameTypeKey<<4 | codecIdHevc
	HevcInterFrame = frameTypeInter<<4 | codecIdHevc

	AvcPacketTypeSeqHeader uint8 = 0
	AvcPacketTypeNalu      uint8 = 1

	HevcPacketTypeSeqHeader uint8 = 0
	HevcPacketTypeNalu      uint8 = 1

	SoundFormatAac uint8 = 10

	AacPacketTypeSeqHeader uint8 = 0
	AacPacketTypeRaw       uint8 = 1
)

// FlvHeader 输出文件的固定file header，音频视频标志位都置上
var FlvHeader = []byte{0x46, 0x4c, 0x56, 0x01, 0x05, 0x00, 0x00, 0x00, 0x09, 0x00, 0x00, 0x00, 0x00}

// FileHeader 9字节file header解析后的结构
type FileHeader struct {
	Version    uint8
	HasAudio   bool
	HasVideo   bool
	DataOffset uint32 // file header起始到第一个tag的字节数
}

// ParseFileHeader 解析并校验<b>开头的9字节file header
//
// 签名或version不对是格式错误，注意，只要凑齐9字节就能给出结论，不存在incomplete的情况
func ParseFileHeader(b []byte) (h FileHeader, err error) {
	if len(b) < 9 {
		return h, base.ErrShortBuffer
	}
	if b[0] != 'F' || b[1] != 'L' || b[2] != 'V' {
		return h, base.NewErrFlvFormat(0, "FLV signature not match")
	}
	h.Version = b[3]
	if h.Version != 1 {
		return h, base.NewErrFlvFormat(3, "version not 1")
	}
	h.HasAudio = b[4]&0x04 != 0
	h.HasVideo = b[4]&0x01 != 0
	h.DataOffset = uint32(b[5])<<24 | uint32(b[6])<<16 | uint32(b[7])<<8 | uint32(b[8])
	if h.DataOffset < 9 {
		return h, base.NewErrFlvFormat(5, "data offset less than header size")
	}
	return h, nil
}
