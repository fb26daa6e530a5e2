package service

import "math"

// pageWindow 换算页码为 offset 与多取一条的 limit；页码大到 offset 溢出时 ok 为 false，调用方返回空页
func pageWindow(page, size int) (offset, limit int, ok bool) {
	if page-1 > math.MaxInt/size {
		return 0, 0, false
	}
	offset = (page - 1) * size
	if offset > math.MaxInt-size {
		return 0, 0, false
	}
	limit = size + 1
	if size == math.MaxInt {
		limit = size
	}
	return offset, limit, true
}
