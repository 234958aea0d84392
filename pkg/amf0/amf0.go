// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package amf0

// 提供amf0格式的编码与解码的操作
//
// <video_file_format_spec_v10.pdf>, <Action Message Format -- AMF 0>
//
// 值类型与Go类型的对应关系：
//   Number      -> float64
//   Boolean     -> bool
//   String      -> string（LongString解码时也折叠成string，编码时按长度自动选择marker）
//   Object      -> Object（ClassName非空时为TypedObject）
//   Null        -> nil
//   Undefined   -> Undefined
//   EcmaArray   -> EcmaArray
//   StrictArray -> StrictArray
//   Date        -> Date
//   XmlDocument -> XmlDocument

const (
	markerNumber      = uint8(0x00)
	markerBoolean     = uint8(0x01)
	markerString      = uint8(0x02)
	markerObject      = uint8(0x03)
	markerMovieclip   = uint8(0x04) // reserved, not supported
	markerNull        = uint8(0x05)
	markerUndefined   = uint8(0x06)
	markerReference   = uint8(0x07)
	markerEcmaArray   = uint8(0x08)
	markerObjectEnd   = uint8(0x09)
	markerStrictArray = uint8(0x0a)
	markerDate        = uint8(0x0b)
	markerLongString  = uint8(0x0c)
	markerUnsupported = uint8(0x0d)
	markerRecordset   = uint8(0x0e) // reserved, not supported
	markerXmlDocument = uint8(0x0f)
	markerTypedObject = uint8(0x10)
	markerAvmPlus     = uint8(0x11)
)

var objectEndBytes = []byte{0x00, 0x00, markerObjectEnd}

// maxNestedDepth 解码时的最大嵌套层数，防止恶意数据打爆栈
const maxNestedDepth = 32

type Value interface{}

// ObjectPair Object/EcmaArray的成员，注意，成员顺序影响重编码的字节序列，所以不使用map
type ObjectPair struct {
	Key   string
	Value Value
}

type Object struct {
	ClassName string // 非空时编码为TypedObject
	Pairs     []ObjectPair
}

// Find 返回第一个key等于<key>的成员的值，不存在时返回nil
func (o Object) Find(key string) Value {
	for i := range o.Pairs {
		if o.Pairs[i].Key == key {
			return o.Pairs[i].Value
		}
	}
	return nil
}

type EcmaArray struct {
	Pairs []ObjectPair
}

func (a EcmaArray) Find(key string) Value {
	for i := range a.Pairs {
		if a.Pairs[i].Key == key {
			return a.Pairs[i].Value
		}
	}
	return nil
}

type StrictArray []Value

// Date unix毫秒时间戳加时区偏移，时区按spec应保持为0
type Date struct {
	UnixMillis     float64
	TimezoneOffset int16
}

type XmlDocument string

type Undefined struct{}
