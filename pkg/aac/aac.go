// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package aac

import (
	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
)

const minAscLength = 2

var ascSamplingFrequencyMapping = map[uint8]int{
	0:  96000,
	1:  88200,
	2:  64000,
	3:  48000,
	4:  44100,
	5:  32000,
	6:  24000,
	7:  22050,
	8:  16000,
	9:  12000,
	10: 11025,
	11: 8000,
}

// <ISO_IEC_14496-3.pdf>
// <1.6.2.1 AudioSpecificConfig>, <page 33/110>
// --------------------------------------------------------
// audio object type      [5b] 1=AAC MAIN  2=AAC LC
// samplingFrequencyIndex [4b] 3=48000  4=44100
// channelConfiguration   [4b] 1=mono  2=stereo
type AscContext struct {
	AudioObjectType        uint8 // [5b]
	SamplingFrequencyIndex uint8 // [4b]
	ChannelConfiguration   uint8 // [4b]
}

func NewAscContext(asc []byte) (*AscContext, error) {
	var ascCtx AscContext
	if err := ascCtx.Unpack(asc); err != nil {
		return nil, err
	}
	return &ascCtx, nil
}

// Unpack
//
// @param asc 2字节的AAC Audio Specific Config
//            注意，如果是flv tag的payload，应去除头部的2个字节
func (ascCtx *AscContext) Unpack(asc []byte) error {
	if len(asc) < minAscLength {
		return base.ErrAac
	}
	br := nazabits.NewBitReader(asc)
	ascCtx.AudioObjectType, _ = br.ReadBits8(5)
	ascCtx.SamplingFrequencyIndex, _ = br.ReadBits8(4)
	ascCtx.ChannelConfiguration, _ = br.ReadBits8(4)
	return nil
}

// Pack
//
// @return asc 内存块为独立新申请
func (ascCtx *AscContext) Pack() (asc []byte) {
	asc = make([]byte, minAscLength)
	bw := nazabits.NewBitWriter(asc)
	bw.WriteBits8(5, ascCtx.AudioObjectType)
	bw.WriteBits8(4, ascCtx.SamplingFrequencyIndex)
	bw.WriteBits8(4, ascCtx.ChannelConfiguration)
	return
}

// SamplingFrequency 采样率，单位Hz，索引表之外的返回错误
func (ascCtx *AscContext) SamplingFrequency() (int, error) {
	v, ok := ascSamplingFrequencyMapping[ascCtx.SamplingFrequencyIndex]
	if !ok {
		return 0, base.ErrAac
	}
	return v, nil
}

// MakeAudioDataSeqHeaderWithAsc 由asc拼出flv audio tag的aac seq header的payload部分
//
// @return out 内存块为独立新申请
func MakeAudioDataSeqHeaderWithAsc(asc []byte) (out []byte, err error) {
	if len(asc) < minAscLength {
		return nil, base.ErrAac
	}
	out = make([]byte, 2+len(asc))
	out[0] = 0xaf
	out[1] = 0
	copy(out[2:], asc)
	return
}
