package agent

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"MoveGPT/internal/conversation"
	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/events"
	"MoveGPT/internal/llm"
	"MoveGPT/internal/observability/metrics"
	"MoveGPT/internal/prompt"
	"MoveGPT/internal/retrieval"
	"MoveGPT/internal/storage/transcript"
	"MoveGPT/pkg/logger"
)

// AccountRetriever 读取账户资源，并返回实际查询的地址。
type AccountRetriever interface {
	RetrieveWithAddress(ctx context.Context, question string) (string, string, error)
}

// TurnResult 是一轮问答的结果。
type TurnResult struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Context   string   `json:"context,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
}

// Agent 串联检索、提示词组装与大模型补全，是系统的业务核心。
type Agent struct {
	completer        llm.Completer
	similarity       retrieval.Retriever
	account          AccountRetriever
	templates        prompt.Set
	sessions         *conversation.Manager
	window           conversation.Window
	transcripts      transcript.Repository
	publisher        events.Publisher
	retrievalTimeout time.Duration
	llmTimeout       time.Duration
	sideEffectWait   time.Duration
	log              *slog.Logger
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// WithSimilarityRetriever 配置文档检索，用于 Move 编程问答。
func WithSimilarityRetriever(r retrieval.Retriever) Option {
	return func(a *Agent) { a.similarity = r }
}

// WithAccountRetriever 配置账户资源检索，用于账户问答。
func WithAccountRetriever(r AccountRetriever) Option {
	return func(a *Agent) { a.account = r }
}

// WithTemplates 替换内置提示词模板，未设置的模板保持默认。
func WithTemplates(set prompt.Set) Option {
	return func(a *Agent) {
		if set.Move != nil {
			a.templates.Move = set.Move
		}
		if set.Resource != nil {
			a.templates.Resource = set.Resource
		}
	}
}

// WithSessions 使用外部创建的会话管理器。
func WithSessions(m *conversation.Manager) Option {
	return func(a *Agent) {
		if m != nil {
			a.sessions = m
		}
	}
}

// WithHistoryWindow 限制渲染进提示词的历史长度。
func WithHistoryWindow(w conversation.Window) Option {
	return func(a *Agent) { a.window = w }
}

// WithTranscript 配置对话记录仓库。
func WithTranscript(repo transcript.Repository) Option {
	return func(a *Agent) { a.transcripts = repo }
}

// WithPublisher 配置事件发布器。
func WithPublisher(p events.Publisher) Option {
	return func(a *Agent) { a.publisher = p }
}

// WithRetrievalTimeout 设置检索阶段的超时时间。
func WithRetrievalTimeout(timeout time.Duration) Option {
	return func(a *Agent) { a.retrievalTimeout = max(timeout, 0) }
}

// WithLLMTimeout 设置调用大模型的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(a *Agent) { a.llmTimeout = max(timeout, 0) }
}

// New 创建一个 Agent。
func New(completer llm.Completer, opts ...Option) *Agent {
	ag := &Agent{
		completer:      completer,
		templates:      prompt.Defaults(),
		sessions:       conversation.NewManager(),
		sideEffectWait: 5 * time.Second,
		log:            logger.Named("agent"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	return ag
}

// Sessions 返回会话管理器。
func (a *Agent) Sessions() *conversation.Manager {
	return a.sessions
}

// Ask 在文档库中检索上下文并回答 Move 编程问题。
func (a *Agent) Ask(ctx context.Context, sessionID, question string) (*TurnResult, error) {
	return a.run(ctx, transcript.ModeSimilarity, sessionID, question)
}

// AskAboutAccount 读取问题中账户的链上资源并回答。
func (a *Agent) AskAboutAccount(ctx context.Context, sessionID, question string) (*TurnResult, error) {
	return a.run(ctx, transcript.ModeResource, sessionID, question)
}

// ListTurns 获取最近的问答记录。
func (a *Agent) ListTurns(ctx context.Context, limit int) ([]transcript.Turn, error) {
	if a.transcripts == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置对话记录仓库")
	}
	turns, err := a.transcripts.ListLatest(ctx, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询对话记录失败")
	}
	return turns, nil
}

func (a *Agent) run(ctx context.Context, mode, sessionID, question string) (*TurnResult, error) {
	start := time.Now()
	result, err := a.turn(ctx, mode, sessionID, strings.TrimSpace(question))
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(xerrors.CodeOf(err)))
		a.log.Log(ctx, levelFor(xerrors.SeverityOf(err)), "问答失败",
			slog.String("session_id", sessionID),
			slog.String("mode", mode),
			slog.Duration("duration", elapsed),
			slog.String("code", string(xerrors.CodeOf(err))),
			slog.Any("error", err))
	} else {
		a.log.Info("问答完成",
			slog.String("session_id", result.SessionID),
			slog.String("mode", mode),
			slog.Duration("duration", elapsed))
	}
	metrics.ObserveTurn(mode, outcome, elapsed)
	return result, err
}

func (a *Agent) turn(ctx context.Context, mode, sessionID, question string) (*TurnResult, error) {
	if a.completer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}
	if question == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "问题不能为空")
	}

	tpl := a.templates.Move
	if mode == transcript.ModeResource {
		tpl = a.templates.Resource
	}

	// 失败的轮次不提交历史，Release 会移除因此留空的新会话。
	session := a.sessions.Acquire(sessionID)
	defer a.sessions.Release(session)
	session.Lock()
	defer session.Unlock()

	contextText, addresses, err := a.retrieve(ctx, mode, question)
	if err != nil {
		return nil, err
	}

	history := session.History().RenderWindow(a.window)
	promptText, err := tpl.AssembleTurn(history, contextText, question)
	if err != nil {
		return nil, err
	}

	answer, err := a.complete(ctx, promptText)
	if err != nil {
		return nil, err
	}

	session.Commit(question, answer)

	record := transcript.Turn{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Mode:      mode,
		Question:  question,
		Context:   contextText,
		Answer:    answer,
		Addresses: addresses,
		CreatedAt: time.Now().UTC(),
	}
	a.record(ctx, record)

	return &TurnResult{
		SessionID: session.ID,
		Answer:    answer,
		Context:   contextText,
		Addresses: addresses,
	}, nil
}

func (a *Agent) retrieve(ctx context.Context, mode, question string) (string, []string, error) {
	rctx := ctx
	if a.retrievalTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, a.retrievalTimeout)
		defer cancel()
	}

	if mode == transcript.ModeResource {
		if a.account == nil {
			return "", nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置账户检索")
		}
		text, addr, err := a.account.RetrieveWithAddress(rctx, question)
		if err != nil {
			return "", nil, classify(err, xerrors.CodeRetrievalFailure, "读取账户资源失败")
		}
		return text, []string{addr}, nil
	}

	if a.similarity == nil {
		return "", nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置知识库检索")
	}
	text, err := a.similarity.Retrieve(rctx, question)
	if err != nil {
		return "", nil, classify(err, xerrors.CodeRetrievalFailure, "检索知识库失败")
	}
	return text, nil, nil
}

func (a *Agent) complete(ctx context.Context, promptText string) (string, error) {
	lctx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}
	answer, err := a.completer.Complete(lctx, promptText)
	if err != nil {
		return "", classify(err, xerrors.CodeCompletionFailure, "大模型推理失败")
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", xerrors.New(xerrors.CodeCompletionFailure, "大模型返回了空回复")
	}
	return answer, nil
}

// record 保存对话记录并发布事件，失败只记录日志。
func (a *Agent) record(ctx context.Context, turn transcript.Turn) {
	logger.Audit().Info("turn",
		slog.String("turn_id", turn.ID),
		slog.String("session_id", turn.SessionID),
		slog.String("mode", turn.Mode),
		slog.Int("question_len", len(turn.Question)),
		slog.Int("answer_len", len(turn.Answer)),
		slog.Any("addresses", turn.Addresses))

	if a.transcripts == nil && a.publisher == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.sideEffectWait)
	defer cancel()

	if a.transcripts != nil {
		if err := a.transcripts.Save(sctx, turn); err != nil {
			a.log.Error("保存对话记录失败", slog.String("turn_id", turn.ID), slog.Any("error", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Publish(sctx, turn); err != nil {
			a.log.Error("发布对话事件失败", slog.String("turn_id", turn.ID), slog.Any("error", err))
		}
	}
}

// levelFor 按错误严重程度选择日志级别。
func levelFor(sev xerrors.Severity) slog.Level {
	switch sev {
	case xerrors.SeverityInfo:
		return slog.LevelInfo
	case xerrors.SeverityCritical:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// classify 超时映射为 TIMEOUT，已带错误码的错误保持原样，其余包装为 fallback。
func classify(err error, fallback xerrors.Code, message string) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, message)
	}
	if coded, ok := xerrors.From(err); ok && coded.Code() != xerrors.CodeUnknown {
		return err
	}
	return xerrors.Wrap(fallback, err, message)
}
