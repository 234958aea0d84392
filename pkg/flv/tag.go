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

	"github.com/q191201771/liverec/pkg/amf0"
	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

type TagHeader struct {
	Type      uint8  // 8 audio, 9 video, 18 script
	DataSize  uint32 // body大小，不包含11字节的tag header和4字节的prev tag size
	Timestamp uint32 // 绝对时间戳，单位毫秒，由低24位和8位扩展组合而成
	StreamId  uint32 // always 0
}

type Tag struct {
	Header TagHeader
	Raw    []byte // 结构为 (11字节的tag header) + (body) + (4字节的prev tag size)
}

func (tag *Tag) Payload() []byte {
	return tag.Raw[TagHeaderSize : len(tag.Raw)-prevTagSizeFieldSize]
}

func (tag *Tag) IsMetadata() bool {
	return tag.Header.Type == TagTypeMetadata
}

func (tag *Tag) IsAvc() bool {
	return tag.Header.Type == TagTypeVideo && tag.Header.DataSize >= 1 && tag.Raw[TagHeaderSize]&0xF == codecIdAvc
}

func (tag *Tag) IsHevc() bool {
	return tag.Header.Type == TagTypeVideo && tag.Header.DataSize >= 1 && tag.Raw[TagHeaderSize]&0xF == codecIdHevc
}

func (tag *Tag) IsAvcKeySeqHeader() bool {
	return tag.Header.Type == TagTypeVideo && tag.Header.DataSize >= 2 &&
		tag.Raw[TagHeaderSize] == AvcKeyFrame && tag.Raw[TagHeaderSize+1] == AvcPacketTypeSeqHeader
}

func (tag *Tag) IsHevcKeySeqHeader() bool {
	return tag.Header.Type == TagTypeVideo && tag.Header.DataSize >= 2 &&
		tag.Raw[TagHeaderSize] == HevcKeyFrame && tag.Raw[TagHeaderSize+1] == HevcPacketTypeSeqHeader
}

// IsVideoKeySeqHeader avc或者hevc的seq header
func (tag *Tag) IsVideoKeySeqHeader() bool {
	return tag.IsAvcKeySeqHeader() || tag.IsHevcKeySeqHeader()
}

func (tag *Tag) IsAvcKeyNalu() bool {
	return tag.Header.Type == TagTypeVideo && tag.Header.DataSize >= 2 &&
		tag.Raw[TagHeaderSize] == AvcKeyFrame && tag.Raw[TagHeaderSize+1] == AvcPacketTypeNalu
}

func (tag *Tag) IsHevcKeyNalu() bool {
	return tag.Header.Type == TagTypeVideo && tag.Header.DataSize >= 2 &&
		tag.Raw[TagHeaderSize] == HevcKeyFrame && tag.Raw[TagHeaderSize+1] == HevcPacketTypeNalu
}

// IsVideoKeyFrame 帧类型为关键帧的video tag，包含seq header在内
//
// 注意，录制切分文件只会发生在这种tag上
func (tag *Tag) IsVideoKeyFrame() bool {
	return tag.Header.Type == TagTypeVideo && tag.Header.DataSize >= 1 && tag.Raw[TagHeaderSize]>>4 == frameTypeKey
}

func (tag *Tag) IsAacSeqHeader() bool {
	return tag.Header.Type == TagTypeAudio && tag.Header.DataSize >= 2 &&
		tag.Raw[TagHeaderSize]>>4 == SoundFormatAac && tag.Raw[TagHeaderSize+1] == AacPacketTypeSeqHeader
}

// Clone tag的深拷贝，Raw使用独立申请的内存块
func (tag *Tag) Clone() (out Tag) {
	out.Header = tag.Header
	out.Raw = append(out.Raw, tag.Raw...)
	return
}

func (tag *Tag) ModTagTimestamp(timestamp uint32) {
	tag.Header.Timestamp = timestamp

	bele.BePutUint24(tag.Raw[4:], timestamp&0xFFFFFF)
	tag.Raw[7] = byte(timestamp >> 24)
}

// ---------------------------------------------------------------------------------------------------------------------

// AudioTagHeader audio tag payload的第1字节，AAC时包含第2字节的packet type
type AudioTagHeader struct {
	SoundFormat   uint8 // [4b] 10=AAC
	SoundRate     uint8 // [2b]
	SoundSize     uint8 // [1b]
	SoundType     uint8 // [1b]
	AacPacketType uint8 // [8b] 只在SoundFormat为AAC时有效
}

// ParseAudioTagHeader
//
// @param payload audio tag的payload部分
func ParseAudioTagHeader(payload []byte) (h AudioTagHeader, err error) {
	if len(payload) < 1 {
		return h, base.ErrShortBuffer
	}
	h.SoundFormat = payload[0] >> 4
	h.SoundRate = payload[0] >> 2 & 0x3
	h.SoundSize = payload[0] >> 1 & 0x1
	h.SoundType = payload[0] & 0x1
	if h.SoundFormat == SoundFormatAac {
		if len(payload) < 2 {
			return h, base.ErrShortBuffer
		}
		h.AacPacketType = payload[1]
	}
	return h, nil
}

// VideoTagHeader video tag payload的第1字节，AVC/HEVC时包含packet type和cts
type VideoTagHeader struct {
	FrameType       uint8 // [4b] 1=key frame
	CodecId         uint8 // [4b] 7=AVC
	AvcPacketType   uint8 // [8b] 0=seq header, 1=NALU。只在AVC/HEVC时有效
	CompositionTime int32 // [24b] 有符号，按24位符号位扩展。只在AVC/HEVC时有效
}

// ParseVideoTagHeader
//
// @param payload video tag的payload部分
func ParseVideoTagHeader(payload []byte) (h VideoTagHeader, err error) {
	if len(payload) < 1 {
		return h, base.ErrShortBuffer
	}
	h.FrameType = payload[0] >> 4
	h.CodecId = payload[0] & 0xF
	if h.CodecId == codecIdAvc || h.CodecId == codecIdHevc {
		if len(payload) < 5 {
			return h, base.ErrShortBuffer
		}
		h.AvcPacketType = payload[1]
		cts := bele.BeUint24(payload[2:])
		if cts&0x800000 != 0 {
			cts |= 0xFF000000
		}
		h.CompositionTime = int32(cts)
	}
	return h, nil
}

// ParseScriptData 解码script tag的payload，即amf0的(name, value)值对
func (tag *Tag) ParseScriptData() (name string, v amf0.Value, err error) {
	name, v, _, err = amf0.ReadScriptData(tag.Payload())
	return
}

// ---------------------------------------------------------------------------------------------------------------------

// PackTag 打包一个序列化好的tag，Raw中包含tag header，body和prev tag size
func PackTag(t uint8, timestamp uint32, body []byte) (tag Tag) {
	tag.Header = TagHeader{
		Type:      t,
		DataSize:  uint32(len(body)),
		Timestamp: timestamp,
	}
	tag.Raw = make([]byte, TagHeaderSize+len(body)+prevTagSizeFieldSize)
	tag.Raw[0] = t
	bele.BePutUint24(tag.Raw[1:], uint32(len(body)))
	bele.BePutUint24(tag.Raw[4:], timestamp&0xFFFFFF)
	tag.Raw[7] = uint8(timestamp >> 24)
	tag.Raw[8] = 0
	tag.Raw[9] = 0
	tag.Raw[10] = 0
	copy(tag.Raw[TagHeaderSize:], body)
	bele.BePutUint32(tag.Raw[TagHeaderSize+len(body):], uint32(TagHeaderSize+len(body)))
	return
}

func parseTagHeader(rawHeader []byte) TagHeader {
	var h TagHeader
	h.Type = rawHeader[0]
	h.DataSize = bele.BeUint24(rawHeader[1:])
	h.Timestamp = uint32(rawHeader[7])<<24 | bele.BeUint24(rawHeader[4:])
	h.StreamId = bele.BeUint24(rawHeader[8:])
	return h
}

func readTag(rd io.Reader) (tag Tag, err error) {
	rawHeader := make([]byte, TagHeaderSize)
	if _, err = io.ReadAtLeast(rd, rawHeader, TagHeaderSize); err != nil {
		return
	}
	header := parseTagHeader(rawHeader)

	needed := int(header.DataSize) + prevTagSizeFieldSize
	tag.Header = header
	tag.Raw = make([]byte, TagHeaderSize+needed)
	copy(tag.Raw, rawHeader)

	if _, err = io.ReadAtLeast(rd, tag.Raw[TagHeaderSize:], needed); err != nil {
		return
	}

	return
}
