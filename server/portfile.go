package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"tunecast/logger"
)

// Listen 绑定监听端口。首选端口被占用且开启 autoPort 时，向后最多
// 探测 probeLimit 个端口；探测耗尽或未开启 autoPort 时返回错误。
func Listen(host string, port int, autoPort bool, probeLimit int) (net.Listener, int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err == nil {
		return ln, port, nil
	}
	if !autoPort {
		return nil, 0, fmt.Errorf("port %d is already in use: %w", port, err)
	}

	logger.Warn("preferred port in use, probing for a free one",
		logger.Int("port", port),
		logger.Int("probeLimit", probeLimit))

	for candidate := port + 1; candidate <= port+probeLimit; candidate++ {
		ln, err = net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(candidate)))
		if err == nil {
			return ln, candidate, nil
		}
	}
	return nil, 0, fmt.Errorf("no free port found in %d..%d", port, port+probeLimit)
}

// WritePortFile 把实际绑定的端口发布到边车文件，供协作进程发现
func WritePortFile(path string, port int) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(port)), 0644); err != nil {
		return fmt.Errorf("write port file %s: %w", path, err)
	}
	return nil
}

// ReadPortFile 读取边车文件里的端口
func ReadPortFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read port file %s: %w", path, err)
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse port file %s: %w", path, err)
	}
	return port, nil
}

// RemovePortFile 删除边车文件，文件不存在不算错误
func RemovePortFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove port file failed", logger.ErrorField(err), logger.String("path", path))
	}
}
