// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package flv_test

import (
	"testing"

	"github.com/q191201771/liverec/pkg/base"
	. "github.com/q191201771/liverec/pkg/flv"
	"github.com/q191201771/naza/pkg/assert"
)

func TestParseFileHeader(t *testing.T) {
	h, err := ParseFileHeader([]byte{'F', 'L', 'V', 1, 0x05, 0, 0, 0, 9})
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(1), h.Version)
	assert.Equal(t, true, h.HasAudio)
	assert.Equal(t, true, h.HasVideo)
	assert.Equal(t, uint32(9), h.DataOffset)

	// 签名错误
	_, err = ParseFileHeader([]byte{'F', 'L', 'X', 1, 0x05, 0, 0, 0, 9})
	assert.IsNotNil(t, err)
	// version错误
	_, err = ParseFileHeader([]byte{'F', 'L', 'V', 2, 0x05, 0, 0, 0, 9})
	assert.IsNotNil(t, err)
	// data offset过小
	_, err = ParseFileHeader([]byte{'F', 'L', 'V', 1, 0x05, 0, 0, 0, 8})
	assert.IsNotNil(t, err)
	// 凑不齐9字节
	_, err = ParseFileHeader([]byte{'F', 'L', 'V'})
	assert.Equal(t, base.ErrShortBuffer, err)
}

func TestPackTag(t *testing.T) {
	body := []byte{0x17, 0x01, 0x00, 0x00, 0x00, 0xaa, 0xbb}
	tag := PackTag(TagTypeVideo, 0x01234567, body)
	assert.Equal(t, TagTypeVideo, tag.Header.Type)
	assert.Equal(t, uint32(len(body)), tag.Header.DataSize)
	assert.Equal(t, uint32(0x01234567), tag.Header.Timestamp)
	assert.Equal(t, TagHeaderSize+len(body)+4, len(tag.Raw))
	// tag header
	assert.Equal(t, []byte{9, 0, 0, 7, 0x23, 0x45, 0x67, 0x01, 0, 0, 0}, tag.Raw[:TagHeaderSize])
	assert.Equal(t, body, tag.Payload())
	// prev tag size
	assert.Equal(t, []byte{0, 0, 0, 18}, tag.Raw[TagHeaderSize+len(body):])
}

func TestTagProperties(t *testing.T) {
	avcSh := PackTag(TagTypeVideo, 0, []byte{0x17, 0x00, 0, 0, 0, 0x01})
	assert.Equal(t, true, avcSh.IsAvc())
	assert.Equal(t, true, avcSh.IsAvcKeySeqHeader())
	assert.Equal(t, true, avcSh.IsVideoKeySeqHeader())
	assert.Equal(t, true, avcSh.IsVideoKeyFrame())
	assert.Equal(t, false, avcSh.IsAvcKeyNalu())

	avcKey := PackTag(TagTypeVideo, 40, []byte{0x17, 0x01, 0, 0, 0, 0x02})
	assert.Equal(t, true, avcKey.IsAvcKeyNalu())
	assert.Equal(t, true, avcKey.IsVideoKeyFrame())
	assert.Equal(t, false, avcKey.IsAvcKeySeqHeader())

	avcInter := PackTag(TagTypeVideo, 80, []byte{0x27, 0x01, 0, 0, 0, 0x03})
	assert.Equal(t, false, avcInter.IsVideoKeyFrame())

	aacSh := PackTag(TagTypeAudio, 0, []byte{0xaf, 0x00, 0x12, 0x10})
	assert.Equal(t, true, aacSh.IsAacSeqHeader())
	aacRaw := PackTag(TagTypeAudio, 23, []byte{0xaf, 0x01, 0x21})
	assert.Equal(t, false, aacRaw.IsAacSeqHeader())

	meta := PackTag(TagTypeMetadata, 0, []byte{0x02, 0, 1, 'x', 0x05})
	assert.Equal(t, true, meta.IsMetadata())
}

// payload不足时的分类判断，不能读到prev tag size字段上去
func TestTagPropertiesShortPayload(t *testing.T) {
	// 只有1字节payload的video tag，prev tag size的首字节0x00恰好等于seq header的packet type
	short := PackTag(TagTypeVideo, 0, []byte{0x17})
	assert.Equal(t, true, short.IsVideoKeyFrame())
	assert.Equal(t, false, short.IsAvcKeySeqHeader())
	assert.Equal(t, false, short.IsVideoKeySeqHeader())
	assert.Equal(t, false, short.IsAvcKeyNalu())

	empty := PackTag(TagTypeVideo, 0, nil)
	assert.Equal(t, false, empty.IsAvc())
	assert.Equal(t, false, empty.IsVideoKeyFrame())
	assert.Equal(t, false, empty.IsAvcKeySeqHeader())

	shortAudio := PackTag(TagTypeAudio, 0, []byte{0xaf})
	assert.Equal(t, false, shortAudio.IsAacSeqHeader())
}

func TestTagClone(t *testing.T) {
	tag := PackTag(TagTypeAudio, 100, []byte{0xaf, 0x01, 0x21})
	out := tag.Clone()
	assert.Equal(t, tag.Header, out.Header)
	assert.Equal(t, tag.Raw, out.Raw)
	// 深拷贝，修改原始数据不影响克隆出来的
	tag.Raw[0] = 0
	assert.Equal(t, TagTypeAudio, out.Header.Type)
	assert.Equal(t, uint8(8), out.Raw[0])
}

func TestModTagTimestamp(t *testing.T) {
	tag := PackTag(TagTypeVideo, 0x01234567, []byte{0x27, 0x01, 0, 0, 0})
	tag.ModTagTimestamp(0x89abcdef)
	assert.Equal(t, uint32(0x89abcdef), tag.Header.Timestamp)
	assert.Equal(t, []byte{0xab, 0xcd, 0xef, 0x89}, tag.Raw[4:8])
}

func TestParseAudioTagHeader(t *testing.T) {
	h, err := ParseAudioTagHeader([]byte{0xaf, 0x00})
	assert.Equal(t, nil, err)
	assert.Equal(t, SoundFormatAac, h.SoundFormat)
	assert.Equal(t, uint8(3), h.SoundRate)
	assert.Equal(t, uint8(1), h.SoundSize)
	assert.Equal(t, uint8(1), h.SoundType)
	assert.Equal(t, AacPacketTypeSeqHeader, h.AacPacketType)

	// AAC但是缺少packet type字节
	_, err = ParseAudioTagHeader([]byte{0xaf})
	assert.Equal(t, base.ErrShortBuffer, err)

	// 非AAC不需要第2字节
	h, err = ParseAudioTagHeader([]byte{0x22})
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(2), h.SoundFormat)
}

func TestParseVideoTagHeader(t *testing.T) {
	h, err := ParseVideoTagHeader([]byte{0x17, 0x01, 0x00, 0x00, 0x28})
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(1), h.FrameType)
	assert.Equal(t, uint8(7), h.CodecId)
	assert.Equal(t, AvcPacketTypeNalu, h.AvcPacketType)
	assert.Equal(t, int32(0x28), h.CompositionTime)

	// cts为负数，24位符号位扩展
	h, err = ParseVideoTagHeader([]byte{0x27, 0x01, 0xff, 0xff, 0xd8})
	assert.Equal(t, nil, err)
	assert.Equal(t, int32(-40), h.CompositionTime)

	_, err = ParseVideoTagHeader([]byte{0x17, 0x01})
	assert.Equal(t, base.ErrShortBuffer, err)
}
