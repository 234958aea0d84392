// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package amf0

import (
	"bytes"
	"math"

	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

// Decoder 从切片中解码amf0值
//
// 引用表complexes的作用域是一次顶层Decode调用：复杂值（Object/EcmaArray/StrictArray/TypedObject）
// 在解码自身成员之前先占位入表，使得后继的兄弟值可以合法引用它；一个Reference如果指向
// 尚未完成的槽位，说明数据里存在环，按ErrAmfCircularReference拒绝而不去解析
//
// 注意，不同的amf消息（比如相邻的两个script tag）之间必须各自使用独立的引用表
type Decoder struct {
	b   []byte
	pos int

	complexes []Value
	depth     int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{
		b: b,
	}
}

// Decode 解码一个顶层值，重复调用时每次都会重置引用表
func (d *Decoder) Decode() (Value, error) {
	d.complexes = d.complexes[:0]
	d.depth = 0
	return d.decodeValue()
}

// ConsumedLen 返回从输入切片中已经消耗的字节数
func (d *Decoder) ConsumedLen() int {
	return d.pos
}

// Decode 解码<b>开头的一个amf0值
//
// 返回值第2个参数为消耗的字节大小
func Decode(b []byte) (Value, int, error) {
	d := NewDecoder(b)
	v, err := d.Decode()
	return v, d.ConsumedLen(), err
}

// ReadScriptData 解码script tag的payload，即(name, value)值对
func ReadScriptData(b []byte) (name string, v Value, n int, err error) {
	d := NewDecoder(b)
	marker, err := d.readUint8()
	if err != nil {
		return
	}
	if marker != markerString {
		err = base.NewErrAmfUnknownMarker(marker)
		return
	}
	if name, err = d.readStr16(); err != nil {
		return
	}
	if v, err = d.Decode(); err != nil {
		return
	}
	n = d.ConsumedLen()
	return
}

func (d *Decoder) decodeValue() (Value, error) {
	if d.depth >= maxNestedDepth {
		return nil, base.ErrAmfTooDeep
	}
	d.depth++
	defer func() {
		d.depth--
	}()

	marker, err := d.readUint8()
	if err != nil {
		return nil, err
	}
	switch marker {
	case markerNumber:
		return d.readBeFloat64()
	case markerBoolean:
		b, err := d.readUint8()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case markerString:
		return d.readStr16()
	case markerObject:
		return d.decodeObject(false)
	case markerNull:
		return nil, nil
	case markerUndefined:
		return Undefined{}, nil
	case markerReference:
		return d.decodeReference()
	case markerEcmaArray:
		return d.decodeEcmaArray()
	case markerStrictArray:
		return d.decodeStrictArray()
	case markerDate:
		return d.decodeDate()
	case markerLongString:
		return d.readStr32()
	case markerXmlDocument:
		s, err := d.readStr32()
		if err != nil {
			return nil, err
		}
		return XmlDocument(s), nil
	case markerTypedObject:
		return d.decodeObject(true)
	case markerMovieclip, markerObjectEnd, markerUnsupported, markerRecordset, markerAvmPlus:
		return nil, base.NewErrAmfUnsupported(marker)
	}
	return nil, base.NewErrAmfUnknownMarker(marker)
}

func (d *Decoder) decodeObject(typed bool) (Value, error) {
	index := len(d.complexes)
	d.complexes = append(d.complexes, nil)

	var className string
	var err error
	if typed {
		if className, err = d.readStr16(); err != nil {
			return nil, err
		}
	}
	pairs, err := d.decodePairs()
	if err != nil {
		return nil, err
	}
	v := Object{
		ClassName: className,
		Pairs:     pairs,
	}
	d.complexes[index] = v
	return v, nil
}

func (d *Decoder) decodeEcmaArray() (Value, error) {
	index := len(d.complexes)
	d.complexes = append(d.complexes, nil)

	// 数组长度字段只作参考，实际按end marker终止
	if _, err := d.readBeUint32(); err != nil {
		return nil, err
	}
	pairs, err := d.decodePairs()
	if err != nil {
		return nil, err
	}
	v := EcmaArray{
		Pairs: pairs,
	}
	d.complexes[index] = v
	return v, nil
}

func (d *Decoder) decodeStrictArray() (Value, error) {
	index := len(d.complexes)
	d.complexes = append(d.complexes, nil)

	count, err := d.readBeUint32()
	if err != nil {
		return nil, err
	}
	var entries StrictArray
	for i := uint32(0); i < count; i++ {
		e, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	d.complexes[index] = entries
	return entries, nil
}

func (d *Decoder) decodeReference() (Value, error) {
	i, err := d.readBeUint16()
	if err != nil {
		return nil, err
	}
	index := int(i)
	if index >= len(d.complexes) {
		return nil, base.NewErrAmfOutOfRangeReference(index)
	}
	v := d.complexes[index]
	if v == nil {
		// 占位符还没有被完成的值替换，即引用了自己的某个祖先
		return nil, base.ErrAmfCircularReference
	}
	return v, nil
}

func (d *Decoder) decodeDate() (Value, error) {
	millis, err := d.readBeFloat64()
	if err != nil {
		return nil, err
	}
	offset, err := d.readBeUint16()
	if err != nil {
		return nil, err
	}
	if math.IsNaN(millis) || math.IsInf(millis, 0) || millis < 0 {
		return nil, base.ErrAmfInvalidDate
	}
	return Date{
		UnixMillis:     millis,
		TimezoneOffset: int16(offset),
	}, nil
}

func (d *Decoder) decodePairs() ([]ObjectPair, error) {
	var pairs []ObjectPair
	for {
		if len(d.b)-d.pos < 3 {
			return nil, base.ErrAmfTooShort
		}
		if bytes.Equal(d.b[d.pos:d.pos+3], objectEndBytes) {
			d.pos += 3
			return pairs, nil
		}
		key, err := d.readStr16()
		if err != nil {
			return nil, err
		}
		value, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, ObjectPair{
			Key:   key,
			Value: value,
		})
	}
}

// ---------------------------------------------------------------------------------------------------------------------

func (d *Decoder) readUint8() (uint8, error) {
	if len(d.b)-d.pos < 1 {
		return 0, base.ErrAmfTooShort
	}
	b := d.b[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readBeUint16() (uint16, error) {
	if len(d.b)-d.pos < 2 {
		return 0, base.ErrAmfTooShort
	}
	v := bele.BeUint16(d.b[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *Decoder) readBeUint32() (uint32, error) {
	if len(d.b)-d.pos < 4 {
		return 0, base.ErrAmfTooShort
	}
	v := bele.BeUint32(d.b[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *Decoder) readBeFloat64() (float64, error) {
	if len(d.b)-d.pos < 8 {
		return 0, base.ErrAmfTooShort
	}
	v := bele.BeFloat64(d.b[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *Decoder) readStr16() (string, error) {
	l, err := d.readBeUint16()
	if err != nil {
		return "", err
	}
	return d.readStr(int(l))
}

func (d *Decoder) readStr32() (string, error) {
	l, err := d.readBeUint32()
	if err != nil {
		return "", err
	}
	return d.readStr(int(l))
}

func (d *Decoder) readStr(l int) (string, error) {
	if len(d.b)-d.pos < l {
		return "", base.ErrAmfTooShort
	}
	s := string(d.b[d.pos : d.pos+l])
	d.pos += l
	return s, nil
}
