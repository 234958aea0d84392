// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"io"

	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

// H.264-AVC-ISO_IEC_14496-15.pdf
// 5.2.4 Decoder configuration information

var NaluStartCode = []byte{0x0, 0x0, 0x0, 0x1}

var NaluTypeMapping = map[uint8]string{
	1: "SLICE",
	5: "IDR",
	6: "SEI",
	7: "SPS",
	8: "PPS",
	9: "AUD",
}

const (
	NaluTypeSlice    uint8 = 1
	NaluTypeIdrSlice uint8 = 5
	NaluTypeSei      uint8 = 6
	NaluTypeSps      uint8 = 7
	NaluTypePps      uint8 = 8
	NaluTypeAud      uint8 = 9

	// 带扩展头的nal类型，这里的解析不支持
	NaluTypePrefix      uint8 = 14
	NaluTypeSliceExt    uint8 = 20
	NaluTypeSliceExt3dv uint8 = 21
)

func CalcNaluType(nalu []byte) uint8 {
	return nalu[0] & 0x1f
}

func CalcNaluTypeReadable(nalu []byte) string {
	t, ok := NaluTypeMapping[CalcNaluType(nalu)]
	if !ok {
		return "unknown"
	}
	return t
}

// ParseNalu 校验nal header并返回去除了emulation prevention字节的rbsp部分
//
// forbidden位为1或者带扩展头的类型（14, 20, 21）按不支持处理
func ParseNalu(nalu []byte) (t uint8, rbsp []byte, err error) {
	if len(nalu) < 1 {
		return 0, nil, base.ErrShortBuffer
	}
	if nalu[0]&0x80 != 0 {
		return 0, nil, base.ErrAvc
	}
	t = CalcNaluType(nalu)
	if t == NaluTypePrefix || t == NaluTypeSliceExt || t == NaluTypeSliceExt3dv {
		return t, nil, base.NewErrAvcUnsupportedNalType(t)
	}
	return t, NaluRbsp(nalu[1:]), nil
}

// NaluRbsp 去除emulation prevention字节，即00 00 03序列中的03
func NaluRbsp(b []byte) []byte {
	rbsp := make([]byte, 0, len(b))
	zeros := 0
	for i := 0; i < len(b); i++ {
		if zeros == 2 && b[i] == 0x03 {
			zeros = 0
			continue
		}
		if b[i] == 0 {
			zeros++
		} else {
			zeros = 0
		}
		rbsp = append(rbsp, b[i])
	}
	return rbsp
}

// ---------------------------------------------------------------------------------------------------------------------

type DecoderConfigurationRecord struct {
	ConfigurationVersion uint8
	AvcProfileIndication uint8
	ProfileCompatibility uint8
	AvcLevelIndication   uint8
	LengthSizeMinusOne   uint8

	SpsList [][]byte
	PpsList [][]byte
}

// ParseDecoderConfigurationRecord 解析AVCDecoderConfigurationRecord，即avc seq header的payload中
// 去掉了前面5字节（帧类型，packet type，cts）的部分
func ParseDecoderConfigurationRecord(b []byte) (dcr DecoderConfigurationRecord, err error) {
	if len(b) < 6 {
		return dcr, base.ErrShortBuffer
	}
	dcr.ConfigurationVersion = b[0]
	dcr.AvcProfileIndication = b[1]
	dcr.ProfileCompatibility = b[2]
	dcr.AvcLevelIndication = b[3]
	dcr.LengthSizeMinusOne = b[4] & 0x03

	pos := 5
	numOfSps := int(b[pos] & 0x1f)
	pos++
	if dcr.SpsList, pos, err = readNaluList(b, pos, numOfSps); err != nil {
		return dcr, err
	}

	if len(b) < pos+1 {
		return dcr, base.ErrShortBuffer
	}
	numOfPps := int(b[pos])
	pos++
	if dcr.PpsList, _, err = readNaluList(b, pos, numOfPps); err != nil {
		return dcr, err
	}
	return dcr, nil
}

func readNaluList(b []byte, pos int, num int) ([][]byte, int, error) {
	var out [][]byte
	for i := 0; i < num; i++ {
		if len(b) < pos+2 {
			return nil, pos, base.ErrShortBuffer
		}
		length := int(bele.BeUint16(b[pos:]))
		pos += 2
		if len(b) < pos+length {
			return nil, pos, base.ErrShortBuffer
		}
		out = append(out, b[pos:pos+length])
		pos += length
	}
	return out, pos, nil
}

// ExtractResolution 从AVCDecoderConfigurationRecord中解析出视频的宽高
//
// 取第一个sps解析
func ExtractResolution(dcrBytes []byte) (width, height uint32, err error) {
	dcr, err := ParseDecoderConfigurationRecord(dcrBytes)
	if err != nil {
		return 0, 0, err
	}
	if len(dcr.SpsList) == 0 {
		return 0, 0, base.ErrAvc
	}
	var ctx Context
	if err = ParseSps(dcr.SpsList[0], &ctx); err != nil {
		return 0, 0, err
	}
	return ctx.Width, ctx.Height, nil
}

// ParseSpsPpsFromSeqHeader 从avc seq header中解析sps和pps
//
// @param payload flv video tag的payload部分，包含前面5字节
//
// 注意，多个sps/pps时只取第一个
func ParseSpsPpsFromSeqHeader(payload []byte) (sps, pps []byte, err error) {
	if len(payload) < 5 {
		return nil, nil, base.ErrShortBuffer
	}
	if payload[0] != 0x17 || payload[1] != 0x00 {
		return nil, nil, base.ErrAvc
	}
	dcr, err := ParseDecoderConfigurationRecord(payload[5:])
	if err != nil {
		return nil, nil, err
	}
	if len(dcr.SpsList) == 0 || len(dcr.PpsList) == 0 {
		return nil, nil, base.ErrAvc
	}
	return dcr.SpsList[0], dcr.PpsList[0], nil
}

// CaptureAvc 将flv video tag的payload部分转换为avc annex-b裸流
func CaptureAvc(w io.Writer, payload []byte) error {
	if len(payload) < 5 {
		return base.ErrShortBuffer
	}

	// seq header转换为sps和pps
	if payload[0] == 0x17 && payload[1] == 0x00 {
		sps, pps, err := ParseSpsPpsFromSeqHeader(payload)
		if err != nil {
			return err
		}
		if _, err = w.Write(NaluStartCode); err != nil {
			return err
		}
		if _, err = w.Write(sps); err != nil {
			return err
		}
		if _, err = w.Write(NaluStartCode); err != nil {
			return err
		}
		_, err = w.Write(pps)
		return err
	}

	// avcc格式，可能存在多个nalu
	// 跳过前面类型的2字节和cts的3字节
	for i := 5; i != len(payload); {
		if i+4 > len(payload) {
			return base.ErrShortBuffer
		}
		naluLen := int(bele.BeUint32(payload[i:]))
		i += 4
		if i+naluLen > len(payload) {
			return base.ErrShortBuffer
		}
		if _, err := w.Write(NaluStartCode); err != nil {
			return err
		}
		if _, err := w.Write(payload[i : i+naluLen]); err != nil {
			return err
		}
		i += naluLen
	}
	return nil
}
