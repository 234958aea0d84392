// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

// 版本信息相关
// 一部分版本信息使用了naza.bininfo，另外在本文件提供一些静态信息

// 版本，该变量由外部脚本修改维护
const LiverecVersion = "v0.2.0"

var (
	LiverecLibraryName = "liverec"
	LiverecGithubRepo  = "github.com/q191201771/liverec"

	// e.g. liverec v0.2.0 (github.com/q191201771/liverec)
	LiverecFullInfo = LiverecLibraryName + " " + LiverecVersion + " (" + LiverecGithubRepo + ")"
)
