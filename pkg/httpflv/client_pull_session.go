// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package httpflv

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/liverec/pkg/flv"
	"github.com/q191201771/naza/pkg/connection"
	"github.com/q191201771/naza/pkg/nazaatomic"
	"github.com/q191201771/naza/pkg/nazahttp"
	"github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/naza/pkg/unique"
)

type PullSessionOption struct {
	// ConnectTimeoutMs TCP连接时超时，单位毫秒，如果为0，则不设置超时
	ConnectTimeoutMs int
	// ReadTimeoutMs 接收数据超时，单位毫秒，如果为0，则不设置超时。
	// 流卡住时依靠它发现对端挂掉，而不是永远等下去
	ReadTimeoutMs int
}

var defaultPullSessionOption = PullSessionOption{
	ConnectTimeoutMs: 0,
	ReadTimeoutMs:    0,
}

type ModPullSessionOption func(option *PullSessionOption)

// PullSession 从远端拉取http-flv流，增量解析出tag后回调给上层
type PullSession struct {
	UniqueKey string

	option PullSessionOption

	conn connection.Connection

	host          string
	pathWithQuery string
	addr          string

	disposedFlag nazaatomic.Bool
}

func NewPullSession(modOptions ...ModPullSessionOption) *PullSession {
	option := defaultPullSessionOption
	for _, fn := range modOptions {
		fn(&option)
	}

	uk := unique.GenUniqueKey("FLVPULL")
	nazalog.Infof("[%s] lifecycle new PullSession.", uk)
	return &PullSession{
		UniqueKey: uk,
		option:    option,
	}
}

type OnReadFlvTag func(tag flv.Tag)

// Pull 阻塞直到流结束或拉流失败
//
// 流正常结束（对端关闭且缓存中没有剩余的半截tag）返回nil
//
// @param rawUrl 支持如下两种格式。（当然，前提是对端支持）
// http://{domain}/{app_name}/{stream_name}.flv
// http://{ip}/{domain}/{app_name}/{stream_name}.flv
//
// @param onReadFlvTag 读取到完整flv tag时回调。回调结束后，PullSession不会再使用这块<tag>内存
func (session *PullSession) Pull(rawUrl string, onReadFlvTag OnReadFlvTag) error {
	if err := session.Connect(rawUrl); err != nil {
		return err
	}
	if err := session.WriteHttpRequest(); err != nil {
		return err
	}
	return session.runReadLoop(onReadFlvTag)
}

// Dispose 主动关闭会话，可在其他goroutine中调用，Pull会随之退出
func (session *PullSession) Dispose() {
	nazalog.Infof("[%s] lifecycle dispose PullSession.", session.UniqueKey)
	session.disposedFlag.Store(true)
	if session.conn != nil {
		_ = session.conn.Close()
	}
}

func (session *PullSession) Connect(rawUrl string) error {
	// # 从url中解析host uri addr
	u, err := url.Parse(rawUrl)
	if err != nil {
		return err
	}
	if u.Scheme != "http" || !strings.HasSuffix(u.Path, ".flv") {
		return base.ErrHttpflvInvalidUrl
	}

	session.host = u.Host
	if u.RawQuery == "" {
		session.pathWithQuery = u.Path
	} else {
		session.pathWithQuery = fmt.Sprintf("%s?%s", u.Path, u.RawQuery)
	}

	if strings.Contains(session.host, ":") {
		session.addr = session.host
	} else {
		session.addr = session.host + ":80"
	}

	nazalog.Debugf("[%s] > tcp connect. addr=%s", session.UniqueKey, session.addr)

	// # 建立连接
	conn, err := net.DialTimeout("tcp", session.addr, time.Duration(session.option.ConnectTimeoutMs)*time.Millisecond)
	if err != nil {
		return err
	}
	session.conn = connection.New(conn, func(option *connection.Option) {
		option.ReadBufSize = readBufSize
		option.WriteTimeoutMs = session.option.ReadTimeoutMs
		option.ReadTimeoutMs = session.option.ReadTimeoutMs
	})
	return nil
}

func (session *PullSession) WriteHttpRequest() error {
	// # 发送http GET请求
	nazalog.Debugf("[%s] > W http request. GET %s", session.UniqueKey, session.pathWithQuery)
	req := fmt.Sprintf("GET %s HTTP/1.0\r\nAccept: */*\r\nRange: byte=0-\r\nConnection: close\r\nHost: %s\r\nIcy-MetaData: 1\r\n\r\n",
		session.pathWithQuery, session.host)
	_, err := session.conn.Write([]byte(req))
	return err
}

func (session *PullSession) ReadHttpRespHeader() error {
	statusLine, _, err := nazahttp.ReadHttpHeader(session.conn)
	if err != nil {
		return err
	}
	_, code, _, err := nazahttp.ParseHttpStatusLine(statusLine)
	if err != nil {
		return err
	}
	nazalog.Debugf("[%s] < R http response header. code=%s", session.UniqueKey, code)
	if code != "200" {
		return base.ErrHttpflv
	}
	return nil
}

func (session *PullSession) runReadLoop(onReadFlvTag OnReadFlvTag) error {
	if err := session.ReadHttpRespHeader(); err != nil {
		return err
	}

	sr := flv.NewStreamReader()
	buf := make([]byte, readBufSize)
	for {
		if session.disposedFlag.Load() {
			return nil
		}

		n, err := session.conn.Read(buf)
		if n > 0 {
			sr.Feed(buf[:n])
			for {
				tag, err := sr.ReadNextTag()
				if err == base.ErrFlvIncomplete {
					break
				}
				if err != nil {
					return err
				}
				onReadFlvTag(tag)
			}
		}
		if err != nil {
			if session.disposedFlag.Load() {
				return nil
			}
			if err == io.EOF {
				if sr.BufLen() == 0 {
					nazalog.Debugf("[%s] read eof, stream end.", session.UniqueKey)
					return nil
				}
				// 对端结束时还留着半截tag
				nazalog.Warnf("[%s] read eof but buffer not empty. bufLen=%d", session.UniqueKey, sr.BufLen())
			}
			return err
		}
	}
}
