package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/storage"
)

// MaxGenerateCount 单次最多生成的别名数
const MaxGenerateCount = domain.MaxDefaultAliasCount

// 生成模式
const (
	GenerateStandard = "standard"
	GenerateCustom   = "custom"
)

// DashboardService 提供应用分组、别名表单数据与别名生成
type DashboardService struct {
	base
	limits    Limits
	generator *Generator
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(store storage.Store, limits Limits, log *zap.Logger, metrics *monitoring.Metrics) *DashboardService {
	return &DashboardService{
		base:      newBase(store, log, metrics),
		limits:    limits,
		generator: NewGenerator(),
	}
}

// Identity 可用于生成别名的发件身份
type Identity struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"isDefault"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GenerationPreferences 生成偏好
type GenerationPreferences struct {
	DefaultCount       int              `json:"defaultCount"`
	DefaultAliasLength int              `json:"defaultAliasLength"`
	Separator          string           `json:"separator"`
	Case               domain.AliasCase `json:"case"`
}

// AliasForm 创建别名页面所需数据
type AliasForm struct {
	Usernames     []Identity             `json:"usernames"`
	Domains       []*domain.CustomDomain `json:"domains"`
	Preferences   GenerationPreferences  `json:"preferences"`
	Active        int                    `json:"active"`
	Limit         int                    `json:"limit"`
	MaxToGenerate int                    `json:"maxToGenerate"`
}

// GenerateInput 生成别名的输入
type GenerateInput struct {
	Mode        string // standard 或 custom
	Identity    string // standard: 主邮箱或启用中的自定义用户名
	Description string
	Count       int // 0 表示使用偏好设置
	Length      int // 0 表示使用偏好设置
	LocalPart   string
	Domain      string
}

// Applications 按描述分组统计别名，按名称排序
func (s *DashboardService) Applications(ctx context.Context, userID string) ([]domain.Application, error) {
	aliases, err := s.store.ListAliases(ctx, userID, storage.AliasFilter{})
	if err != nil {
		return nil, s.fail("dashboard", msgDBError, err)
	}

	groups := make(map[string]*domain.Application)
	for _, a := range aliases {
		name := strings.TrimSpace(a.Description)
		if name == "" {
			name = "Uncategorized"
		}
		app, ok := groups[name]
		if !ok {
			app = &domain.Application{Name: name}
			groups[name] = app
		}
		app.AliasCount++
		if a.IsActive {
			app.ActiveCount++
		}
		if a.CreatedAt.After(app.LastCreatedAt) {
			app.LastCreatedAt = a.CreatedAt
		}
	}

	apps := make([]domain.Application, 0, len(groups))
	for _, app := range groups {
		apps = append(apps, *app)
	}
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].Name < apps[j].Name
	})
	return apps, nil
}

// AliasForm 返回主邮箱、启用中的用户名与域名以及生成偏好
func (s *DashboardService) AliasForm(ctx context.Context, userID string) (*AliasForm, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.fail("dashboard", msgDBError, notFound(err, "User not found."))
	}
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			return nil, s.fail("dashboard", msgDBError, err)
		}
		settings = domain.DefaultSettings(userID, user.Email)
	}

	usernames, err := s.store.ListCustomUsernames(ctx, userID, true)
	if err != nil {
		return nil, s.fail("dashboard", msgDBError, err)
	}
	domains, err := s.store.ListCustomDomains(ctx, userID, true)
	if err != nil {
		return nil, s.fail("dashboard", msgDBError, err)
	}
	active, err := s.store.CountActiveAliases(ctx, userID)
	if err != nil {
		return nil, s.fail("dashboard", msgDBError, err)
	}

	identities := make([]Identity, 0, len(usernames)+1)
	identities = append(identities, Identity{
		ID:          "primary",
		Username:    user.Email,
		Description: "Primary Account Email",
		IsDefault:   true,
		IsActive:    true,
		CreatedAt:   user.CreatedAt,
	})
	for _, u := range usernames {
		identities = append(identities, Identity{
			ID:          u.ID,
			Username:    u.Username,
			Description: u.Description,
			IsActive:    u.IsActive,
			CreatedAt:   u.CreatedAt,
		})
	}

	slots := availableSlots(s.limits.ActiveAliases, active)
	return &AliasForm{
		Usernames: identities,
		Domains:   domains,
		Preferences: GenerationPreferences{
			DefaultCount:       settings.DefaultAliasCount,
			DefaultAliasLength: settings.DefaultAliasLength,
			Separator:          settings.AliasSeparator,
			Case:               settings.AliasCase,
		},
		Active:        active,
		Limit:         s.limits.ActiveAliases,
		MaxToGenerate: min(MaxGenerateCount, slots),
	}, nil
}

// Generate 生成候选别名，不写入存储。保存通过 AliasService.Create 完成。
func (s *DashboardService) Generate(ctx context.Context, userID string, input GenerateInput) ([]string, error) {
	form, err := s.AliasForm(ctx, userID)
	if err != nil {
		return nil, err
	}
	if form.MaxToGenerate == 0 {
		s.metrics.RecordQuotaRejection(resourceActiveAliases)
		return nil, s.limits.activeAliasLimitError(true)
	}

	switch input.Mode {
	case GenerateCustom:
		return s.generateCustom(form, input)
	case GenerateStandard, "":
		return s.generateStandard(form, input)
	default:
		return nil, domain.Validation("Unknown alias type.")
	}
}

func (s *DashboardService) generateStandard(form *AliasForm, input GenerateInput) ([]string, error) {
	identity := ""
	for _, u := range form.Usernames {
		if strings.EqualFold(u.Username, strings.TrimSpace(input.Identity)) {
			identity = u.Username
			break
		}
	}
	if identity == "" {
		return nil, domain.Validation("Please select one of your active email identities.")
	}

	count := input.Count
	if count == 0 {
		count = form.Preferences.DefaultCount
	}
	if count < 1 || count > MaxGenerateCount {
		return nil, domain.Validation("You can generate between 1 and 5 aliases at a time.")
	}
	count = min(count, form.MaxToGenerate)

	length := input.Length
	if length == 0 {
		length = form.Preferences.DefaultAliasLength
	}
	if length != domain.DefaultAliasLength && length != domain.LongAliasLength {
		return nil, domain.Validation("Alias length must be 12 or 16.")
	}

	aliases := make([]string, 0, count)
	for i := 0; i < count; i++ {
		alias, ok := s.generator.Alias(GenerateOptions{
			Email:       identity,
			Description: input.Description,
			Length:      length,
			Separator:   form.Preferences.Separator,
			Case:        form.Preferences.Case,
		})
		if !ok {
			return nil, domain.Validation("Please enter a valid email address.")
		}
		aliases = append(aliases, alias)
	}
	return aliases, nil
}

func (s *DashboardService) generateCustom(form *AliasForm, input GenerateInput) ([]string, error) {
	host := strings.ToLower(strings.TrimSpace(input.Domain))
	found := false
	for _, d := range form.Domains {
		if d.DomainName == host {
			found = true
			break
		}
	}
	if !found {
		return nil, domain.Validation("Please select one of your active custom domains.")
	}

	address := strings.TrimSpace(input.LocalPart) + "@" + host
	if !domain.ValidateEmail(address) {
		return nil, domain.Validation("Please enter a valid email address.")
	}
	return []string{address}, nil
}
