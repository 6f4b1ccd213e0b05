package localimage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/league-stream-utils/lsu-assets/internal/assets"
	"github.com/league-stream-utils/lsu-assets/internal/cache"
	"github.com/league-stream-utils/lsu-assets/internal/logging"
	"github.com/league-stream-utils/lsu-assets/internal/server"
)

const (
	// CacheControl 对所有 200/304 响应生效；资源以 validator 区分版本，可长期缓存。
	CacheControl = "public, max-age=31536000, immutable"

	defaultMaxInMemorySize = 1024 * 1024
	defaultChunkSize       = 8192

	sourceMemory      = "memory"
	sourceDisk        = "disk"
	sourceStream      = "stream"
	sourceNotModified = "not_modified"
)

// Options 描述 Handler 的依赖；ReadFile/Open 默认使用 os 包，测试可注入计数实现。
type Options struct {
	Logger          *logrus.Logger
	Resolver        *assets.Resolver
	Cache           *cache.Service
	MaxInMemorySize int64
	ChunkSize       int

	ReadFile func(name string) ([]byte, error)
	Open     func(name string) (io.ReadCloser, error)
}

// Handler 负责 “解析路径 → 存在性检查 → 条件请求 → 内存缓存或分块流式输出” 的全流程。
type Handler struct {
	logger      *logrus.Logger
	resolver    *assets.Resolver
	cache       *cache.Service
	maxInMemory int64
	chunkSize   int

	readFile func(name string) ([]byte, error)
	open     func(name string) (io.ReadCloser, error)
}

// NewHandler 校验必需依赖并补齐默认值。
func NewHandler(opts Options) (*Handler, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("cache service is required")
	}
	if opts.MaxInMemorySize <= 0 {
		opts.MaxInMemorySize = defaultMaxInMemorySize
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	if opts.Open == nil {
		opts.Open = func(name string) (io.ReadCloser, error) { return os.Open(name) }
	}

	return &Handler{
		logger:      opts.Logger,
		resolver:    opts.Resolver,
		cache:       opts.Cache,
		maxInMemory: opts.MaxInMemorySize,
		chunkSize:   opts.ChunkSize,
		readFile:    opts.ReadFile,
		open:        opts.Open,
	}, nil
}

// Handle 处理 GET/HEAD /local-image?path=...，失败时返回 {"detail": "..."}。
func (h *Handler) Handle(c fiber.Ctx) error {
	started := time.Now()
	req := &requestState{
		requestID: server.RequestID(c),
		raw:       c.Query("path"),
		started:   started,
	}

	if req.raw == "" {
		return h.writeError(c, req, fiber.StatusBadRequest, "Missing path")
	}

	resolved, err := h.resolver.Resolve(req.raw)
	if err != nil {
		req.err = err
		return h.writeError(c, req, fiber.StatusBadRequest, "Invalid path")
	}
	req.resolved = resolved

	entry := h.cache.CheckExists(resolved)
	if !entry.Exists || entry.Meta == nil {
		return h.writeError(c, req, fiber.StatusNotFound, "Not found")
	}

	meta := *entry.Meta
	validator := assets.Validator(meta.ModTime)
	contentType := assets.ContentType(resolved)

	c.Set(fiber.HeaderCacheControl, CacheControl)
	c.Set(fiber.HeaderETag, validator)

	if c.Get(fiber.HeaderIfNoneMatch) == validator {
		c.Status(fiber.StatusNotModified)
		c.Response().ResetBody()
		req.source = sourceNotModified
		h.logResult(req, fiber.StatusNotModified, 0)
		return nil
	}

	if meta.Size > 0 && meta.Size < h.maxInMemory {
		if cached, ok := h.cache.Lookup(resolved, validator); ok {
			req.source = sourceMemory
			req.cacheHit = true
			return h.sendBytes(c, req, cached.ContentType, cached.Data)
		}

		data, readErr := h.readFile(resolved)
		if readErr == nil {
			h.cache.Store(resolved, data, contentType, validator)
			req.source = sourceDisk
			return h.sendBytes(c, req, contentType, data)
		}
		// 读入内存失败时退回流式输出，而不是直接让请求失败。
		h.logger.WithFields(logrus.Fields{
			"action": "local_image_read",
			"path":   resolved,
		}).WithError(readErr).Debug("small file read failed, streaming instead")
	}

	return h.stream(c, req, contentType, meta.Size)
}

func (h *Handler) sendBytes(c fiber.Ctx, req *requestState, contentType string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Status(fiber.StatusOK)
	h.logResult(req, fiber.StatusOK, int64(len(data)))

	if c.Method() == fiber.MethodHead {
		c.Response().Header.SetContentLength(len(data))
		return nil
	}
	return c.Send(data)
}

func (h *Handler) stream(c fiber.Ctx, req *requestState, contentType string, size int64) error {
	req.source = sourceStream

	file, err := h.open(req.resolved)
	if err != nil {
		// 文件在存在性缓存有效期内被删除或替换，丢弃过期记录。
		h.cache.Invalidate(req.resolved)
		req.err = err
		if errors.Is(err, fs.ErrNotExist) {
			return h.writeError(c, req, fiber.StatusNotFound, "Not found")
		}
		return h.writeError(c, req, fiber.StatusInternalServerError, "Internal error")
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	c.Status(fiber.StatusOK)
	h.logResult(req, fiber.StatusOK, size)

	if c.Method() == fiber.MethodHead {
		file.Close()
		c.Response().Header.SetContentLength(int(size))
		return nil
	}

	// fasthttp 写完响应后会关闭实现了 io.Closer 的 body stream。
	return c.SendStream(&chunkedReader{r: file, chunk: h.chunkSize}, int(size))
}

func (h *Handler) writeError(c fiber.Ctx, req *requestState, status int, detail string) error {
	h.logResult(req, status, 0)
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}

type requestState struct {
	requestID string
	raw       string
	resolved  string
	source    string
	cacheHit  bool
	started   time.Time
	err       error
}

func (h *Handler) logResult(req *requestState, status int, size int64) {
	fields := logging.RequestFields(req.raw, req.source, req.cacheHit)
	fields["status"] = status
	fields["elapsed_ms"] = time.Since(req.started).Milliseconds()
	if req.resolved != "" {
		fields["resolved"] = req.resolved
	}
	if size > 0 {
		fields["bytes"] = humanize.IBytes(uint64(size))
	}
	if req.requestID != "" {
		fields["request_id"] = req.requestID
	}

	entry := h.logger.WithFields(fields)
	switch {
	case status >= fiber.StatusInternalServerError:
		entry.WithError(req.err).Error("local_image_failed")
	case status >= fiber.StatusBadRequest:
		if req.err != nil {
			entry = entry.WithError(req.err)
		}
		entry.Warn("local_image_rejected")
	default:
		entry.Info("local_image_complete")
	}
}

// chunkedReader 限制单次 Read 的字节数，使响应按固定块大小写出。
type chunkedReader struct {
	r     io.ReadCloser
	chunk int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(p) > r.chunk {
		p = p[:r.chunk]
	}
	return r.r.Read(p)
}

func (r *chunkedReader) Close() error {
	return r.r.Close()
}
