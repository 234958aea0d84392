// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
	"github.com/q191201771/naza/pkg/nazaerrors"
)

// ISO-14496-10.pdf
// 7.3.2.1 Sequence parameter set RBSP syntax

type Context struct {
	Profile uint8
	Level   uint8
	Width   uint32
	Height  uint32
}

type Sps struct {
	ProfileIdc         uint8
	ConstraintSet0Flag uint8
	ConstraintSet1Flag uint8
	ConstraintSet2Flag uint8
	LevelIdc           uint8
	SpsId              uint32

	ChromaFormatIdc         uint32
	SeparateColourPlaneFlag uint8
	BitDepthLuma            uint32
	BitDepthChroma          uint32
	TransFormBypass         uint8

	Log2MaxFrameNumMinus4 uint32
	PicOrderCntType       uint32
	Log2MaxPicOrderCntLsb uint32

	NumRefFrames                   uint32
	GapsInFrameNumValueAllowedFlag uint8

	PicWidthInMbsMinusOne       uint32
	PicHeightInMapUnitsMinusOne uint32
	FrameMbsOnlyFlag            uint8
	MbAdaptiveFrameFieldFlag    uint8
	Direct8X8InferenceFlag      uint8

	FrameCroppingFlag     uint8
	FrameCropLeftOffset   uint32
	FrameCropRightOffset  uint32
	FrameCropTopOffset    uint32
	FrameCropBottomOffset uint32
}

// 这些profile的sps中才存在chroma_format_idc，位深和缩放矩阵等字段
var highProfileIds = map[uint8]struct{}{
	100: {}, 110: {}, 122: {}, 244: {}, 44: {}, 83: {}, 86: {}, 118: {}, 128: {}, 138: {}, 139: {}, 134: {}, 135: {},
}

// subWidthHeightC chroma_format_idc对应的色度采样比
//
// 0是单色，查询时按错误处理
func subWidthHeightC(chromaFormatIdc uint32) (uint32, uint32, error) {
	switch chromaFormatIdc {
	case 1:
		return 2, 2, nil
	case 2:
		return 2, 1, nil
	case 3:
		return 1, 1, nil
	}
	return 0, 0, base.ErrAvcChromaFormat
}

// FrameWidth 由宏块数和裁剪偏移计算出的像素宽
func (sps *Sps) FrameWidth() (uint32, error) {
	w := (sps.PicWidthInMbsMinusOne + 1) * 16
	if sps.FrameCroppingFlag == 1 {
		cropUnitX := uint32(1)
		if sps.SeparateColourPlaneFlag == 0 {
			subW, _, err := subWidthHeightC(sps.ChromaFormatIdc)
			if err != nil {
				return 0, err
			}
			cropUnitX = subW
		}
		w -= cropUnitX * (sps.FrameCropLeftOffset + sps.FrameCropRightOffset)
	}
	return w, nil
}

// FrameHeight 注意，隔行时map unit是两个宏块高
func (sps *Sps) FrameHeight() (uint32, error) {
	h := (2 - uint32(sps.FrameMbsOnlyFlag)) * (sps.PicHeightInMapUnitsMinusOne + 1) * 16
	if sps.FrameCroppingFlag == 1 {
		cropUnitY := 2 - uint32(sps.FrameMbsOnlyFlag)
		if sps.SeparateColourPlaneFlag == 0 {
			_, subH, err := subWidthHeightC(sps.ChromaFormatIdc)
			if err != nil {
				return 0, err
			}
			cropUnitY *= subH
		}
		h -= cropUnitY * (sps.FrameCropTopOffset + sps.FrameCropBottomOffset)
	}
	return h, nil
}

// ParseSps 解析sps中和分辨率相关的字段，结果填入<ctx>
//
// @param payload sps nal unit，包含1字节的nal header，未去除emulation prevention字节
func ParseSps(payload []byte, ctx *Context) error {
	var sps Sps
	if err := ParseSpsStruct(payload, &sps); err != nil {
		return err
	}
	ctx.Profile = sps.ProfileIdc
	ctx.Level = sps.LevelIdc
	var err error
	if ctx.Width, err = sps.FrameWidth(); err != nil {
		return err
	}
	if ctx.Height, err = sps.FrameHeight(); err != nil {
		return err
	}
	return nil
}

func ParseSpsStruct(payload []byte, sps *Sps) error {
	t, rbsp, err := ParseNalu(payload)
	if err != nil {
		return err
	}
	if t != NaluTypeSps {
		return nazaerrors.Wrap(base.ErrAvc)
	}

	br := nazabits.NewBitReader(rbsp)
	if sps.ProfileIdc, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.ConstraintSet0Flag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.ConstraintSet1Flag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.ConstraintSet2Flag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if _, err = br.ReadBits8(5); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.LevelIdc, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.SpsId, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.SpsId >= 32 {
		return nazaerrors.Wrap(base.ErrAvc)
	}

	if _, ok := highProfileIds[sps.ProfileIdc]; ok {
		if sps.ChromaFormatIdc, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.ChromaFormatIdc > 3 {
			return nazaerrors.Wrap(base.ErrAvc)
		}
		if sps.ChromaFormatIdc == 3 {
			if sps.SeparateColourPlaneFlag, err = br.ReadBits8(1); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
		if sps.BitDepthLuma, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		sps.BitDepthLuma += 8
		if sps.BitDepthChroma, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		sps.BitDepthChroma += 8
		if sps.BitDepthChroma != sps.BitDepthLuma || sps.BitDepthChroma < 8 || sps.BitDepthChroma > 14 {
			return nazaerrors.Wrap(base.ErrAvc)
		}
		if sps.TransFormBypass, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
		flag, err := br.ReadBits8(1)
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		if flag == 1 {
			if err = skipScalingMatrices(&br, sps.ChromaFormatIdc); err != nil {
				return err
			}
		}
	} else {
		sps.ChromaFormatIdc = 1
		sps.BitDepthLuma = 8
		sps.BitDepthChroma = 8
	}

	if sps.Log2MaxFrameNumMinus4, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.Log2MaxFrameNumMinus4 > 12 {
		return nazaerrors.Wrap(base.ErrAvc)
	}
	if sps.PicOrderCntType, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	switch sps.PicOrderCntType {
	case 0:
		if sps.Log2MaxPicOrderCntLsb, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		sps.Log2MaxPicOrderCntLsb += 4
	case 1:
		if _, err = br.ReadBits8(1); err != nil { // delta_pic_order_always_zero_flag
			return nazaerrors.Wrap(err)
		}
		if _, err = readSignedGolomb(&br); err != nil { // offset_for_non_ref_pic
			return nazaerrors.Wrap(err)
		}
		if _, err = readSignedGolomb(&br); err != nil { // offset_for_top_to_bottom_field
			return nazaerrors.Wrap(err)
		}
		cycle, err := br.ReadGolomb()
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		for i := uint32(0); i < cycle; i++ {
			if _, err = readSignedGolomb(&br); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
	case 2:
		// noop
	default:
		return nazaerrors.Wrap(base.ErrAvc)
	}

	if sps.NumRefFrames, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.GapsInFrameNumValueAllowedFlag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.PicWidthInMbsMinusOne, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.PicHeightInMapUnitsMinusOne, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameMbsOnlyFlag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameMbsOnlyFlag == 0 {
		if sps.MbAdaptiveFrameFieldFlag, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
	}
	if sps.Direct8X8InferenceFlag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameCroppingFlag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameCroppingFlag == 1 {
		if sps.FrameCropLeftOffset, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.FrameCropRightOffset, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.FrameCropTopOffset, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.FrameCropBottomOffset, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
	}

	// vui部分与分辨率无关，不解析
	return nil
}

// readSignedGolomb 有符号指数哥伦布编码，即标准的se(v)
func readSignedGolomb(br *nazabits.BitReader) (int32, error) {
	v, err := br.ReadGolomb()
	if err != nil {
		return 0, err
	}
	if v&1 == 1 {
		return int32(v+1) / 2, nil
	}
	return -int32(v / 2), nil
}

// skipScalingMatrices 跳过缩放矩阵，不保留内容但消耗的位数必须准确
func skipScalingMatrices(br *nazabits.BitReader, chromaFormatIdc uint32) error {
	cnt := 8
	if chromaFormatIdc == 3 {
		cnt = 12
	}
	for i := 0; i < cnt; i++ {
		flag, err := br.ReadBits8(1)
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		if flag == 0 {
			continue
		}
		size := 16
		if i >= 6 {
			size = 64
		}
		last, next := 8, 8
		for j := 0; j < size; j++ {
			if next != 0 {
				delta, err := readSignedGolomb(br)
				if err != nil {
					return nazaerrors.Wrap(err)
				}
				next = (last + int(delta) + 256) % 256
			}
			if next != 0 {
				last = next
			}
		}
	}
	return nil
}
