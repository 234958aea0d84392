// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var ErrShortBuffer = errors.New("liverec: buffer too short")

// ----- pkg/flv -------------------------------------------------------------------------------------------------------

var (
	// ErrFlvIncomplete 注意，这不是失败，表示当前缓存的数据还不足以组成一个完整的tag，
	// 喂入更多数据后从相同位置重试即可
	ErrFlvIncomplete = errors.New("liverec.flv: incomplete, need more bytes")

	ErrFlvFormat     = errors.New("liverec.flv: format error")
	ErrFlvFileClosed = errors.New("liverec.flv: file not opened")
)

func NewErrFlvFormat(offset uint64, msg string) error {
	return fmt.Errorf("%w. offset=%d, msg=%s", ErrFlvFormat, offset, msg)
}

// ----- pkg/amf0 ------------------------------------------------------------------------------------------------------

var (
	ErrAmfTooShort            = errors.New("liverec.amf0: too short to unmarshal amf0 data")
	ErrAmfUnknownMarker       = errors.New("liverec.amf0: unknown amf0 marker")
	ErrAmfUnsupported         = errors.New("liverec.amf0: unsupported amf0 marker")
	ErrAmfCircularReference   = errors.New("liverec.amf0: circular reference")
	ErrAmfOutOfRangeReference = errors.New("liverec.amf0: reference index out of range")
	ErrAmfInvalidDate         = errors.New("liverec.amf0: invalid date")
	ErrAmfTooDeep             = errors.New("liverec.amf0: nested too deep")
	ErrAmfStringTooLong       = errors.New("liverec.amf0: string exceeds marker length limit")
	ErrAmfInvalidValue        = errors.New("liverec.amf0: value type can not be encoded")
)

func NewErrAmfUnknownMarker(b byte) error {
	return fmt.Errorf("%w. marker=%d", ErrAmfUnknownMarker, b)
}

func NewErrAmfUnsupported(b byte) error {
	return fmt.Errorf("%w. marker=%d", ErrAmfUnsupported, b)
}

func NewErrAmfOutOfRangeReference(index int) error {
	return fmt.Errorf("%w. index=%d", ErrAmfOutOfRangeReference, index)
}

// ----- pkg/avc -------------------------------------------------------------------------------------------------------

var (
	ErrAvc                   = errors.New("liverec.avc: fxxk")
	ErrAvcUnsupportedNalType = errors.New("liverec.avc: unsupported nal unit type")
	ErrAvcChromaFormat       = errors.New("liverec.avc: sub width/height undefined for chroma format")
)

func NewErrAvcUnsupportedNalType(t uint8) error {
	return fmt.Errorf("%w. type=%d", ErrAvcUnsupportedNalType, t)
}

// ----- pkg/aac -------------------------------------------------------------------------------------------------------

var ErrAac = errors.New("liverec.aac: fxxk")

// ----- pkg/record ----------------------------------------------------------------------------------------------------

var ErrRecordDisposed = errors.New("liverec.record: recorder disposed")

// ----- pkg/httpflv ---------------------------------------------------------------------------------------------------

var (
	ErrHttpflv           = errors.New("liverec.httpflv: fxxk")
	ErrHttpflvInvalidUrl = errors.New("liverec.httpflv: invalid url")
)
