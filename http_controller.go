package sokoni

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// APIController serves the JSON account surface: registration, login,
// approvals, and the admin lifecycle endpoints.
type APIController struct {
	Debug     bool
	Logger    Logger
	Repo      RepositoryManager
	Auther    *Auther
	Approvals *ApprovalEngine
	Accounts  *AccountManager
	Settings  *Settings
	Guard     Guard
}

type APIControllerOption func(*APIController) *APIController

func NewAPIController(opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger: defLogger{},
		Guard:  NewGuard(),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in api controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in api controller...")
	}

	if c.Approvals == nil {
		c.Approvals = NewApprovalEngine(c.Repo, WithEngineLogger(c.Logger))
	}

	if c.Accounts == nil {
		c.Accounts = NewAccountManager(c.Repo).WithLogger(c.Logger)
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Auther = auther
		return c
	}
}

func WithControllerSettings(settings *Settings) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Settings = settings
		return c
	}
}

func WithControllerLogger(l Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerDebug(debug bool) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Debug = debug
		return c
	}
}

// RegisterAPIRoutes mounts the controller. The two middleware arguments come
// from the middleware package; they are parameters here to keep this package
// free of a dependency on it.
func RegisterAPIRoutes(app fiber.Router, c *APIController, requireAuth, requireApproved fiber.Handler) {
	auth := app.Group("/auth")
	auth.Post("/register", c.Register)
	auth.Post("/login", c.Login)
	auth.Get("/me", requireAuth, c.Me)
	auth.Post("/service-token", requireAuth, requireApproved, c.ServiceToken)

	approvals := app.Group("/approvals", requireAuth)
	approvals.Get("/pending", c.PendingApprovals)
	approvals.Post("/:id/decision", c.DecideApproval)
	approvals.Get("/status", c.ApprovalStatus)

	users := app.Group("/users", requireAuth)
	users.Get("/", c.UsersByRole)
	users.Get("/counts", c.RoleCounts)
	users.Get("/role/:role", c.UsersByRole)
	users.Patch("/:id/suspend", c.SuspendUser)
	users.Patch("/:id/activate", c.ActivateUser)
	users.Delete("/:id", c.DeleteUser)
	users.Post("/:id/password", c.ResetUserPassword)

	settings := app.Group("/settings", requireAuth)
	settings.Get("/", c.GetSettings)
	settings.Patch("/", c.UpdateSettings)
}

// RegisterPayload is the registration body.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Role, validation.By(validateRoleTag)),
	)
}

func validateRoleTag(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	if _, ok := ParseRole(raw); !ok {
		return fmt.Errorf("unknown role: %s", raw)
	}
	return nil
}

func (a *APIController) Register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return RenderValidation(c, err)
	}

	if a.Debug {
		fmt.Println("======= REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=======================")
	}

	handler := NewRegisterAccountHandler(a.Repo).WithLogger(a.Logger)
	account, err := handler.Execute(c.Context(), RegisterAccountMessage{
		Email:    payload.Email,
		Password: payload.Password,
		FullName: payload.FullName,
		Role:     payload.Role,
		Bio:      payload.Bio,
		Avatar:   payload.Avatar,
	})
	if err != nil {
		return RenderError(c, err)
	}

	token, err := a.Auther.IssueLogin(account.Identity())
	if err != nil {
		return RenderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":   token,
		"account": account,
	})
}

// LoginPayload is the login body.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *APIController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return RenderValidation(c, err)
	}

	token, identity, err := a.Auther.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return RenderError(c, err)
	}

	account, err := a.Repo.Accounts().GetByEmail(c.Context(), identity.Email())
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"account": account,
	})
}

func (a *APIController) Me(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	out := fiber.Map{"account": account}

	if account.Role.Privileged() {
		status, err := a.Approvals.StatusFor(c.Context(), account.ID)
		if err != nil {
			return RenderError(c, err)
		}
		out["approval"] = status
	}

	return c.JSON(out)
}

// ServiceToken issues the short-lived token used for service-to-service
// calls. It coexists with the login token that authenticated this request.
func (a *APIController) ServiceToken(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	token, err := a.Auther.ServiceToken(account.Identity())
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"token": token})
}

func (a *APIController) PendingApprovals(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	pending, err := a.Approvals.ListPending(c.Context(), account.Role)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"approvals": pending})
}

// DecisionPayload is the approval decision body.
type DecisionPayload struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// Validate will run validation rules
func (r DecisionPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

func (a *APIController) DecideApproval(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return RenderValidation(c, fmt.Errorf("invalid request id"))
	}

	payload := new(DecisionPayload)
	if err := c.BodyParser(payload); err != nil {
		return RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return RenderValidation(c, err)
	}

	decided, err := a.Approvals.Decide(c.Context(), requestID, account, payload.Approved, payload.Reason)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"approval": decided})
}

func (a *APIController) ApprovalStatus(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	status, err := a.Approvals.StatusFor(c.Context(), account.ID)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"approval": status})
}

func (a *APIController) UsersByRole(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	raw := c.Params("role", c.Query("role", string(RolePublic)))
	role, ok := ParseRole(raw)
	if !ok {
		return RenderValidation(c, fmt.Errorf("unknown role: %s", raw))
	}

	users, err := a.Accounts.ListByRole(c.Context(), account, role)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"users": users})
}

func (a *APIController) RoleCounts(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	counts, err := a.Accounts.RoleCounts(c.Context(), account)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"counts": counts})
}

func (a *APIController) targetFromParams(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid account id")
	}
	return id, nil
}

func (a *APIController) SuspendUser(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	targetID, err := a.targetFromParams(c)
	if err != nil {
		return RenderValidation(c, err)
	}

	updated, err := a.Accounts.Suspend(c.Context(), account, targetID)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"account": updated})
}

func (a *APIController) ActivateUser(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	targetID, err := a.targetFromParams(c)
	if err != nil {
		return RenderValidation(c, err)
	}

	updated, err := a.Accounts.Activate(c.Context(), account, targetID)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"account": updated})
}

func (a *APIController) DeleteUser(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	targetID, err := a.targetFromParams(c)
	if err != nil {
		return RenderValidation(c, err)
	}

	if err := a.Accounts.Delete(c.Context(), account, targetID); err != nil {
		return RenderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PasswordResetPayload is the admin password reset body.
type PasswordResetPayload struct {
	Password string `json:"password"`
}

// Validate will run validation rules
func (r PasswordResetPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
	)
}

func (a *APIController) ResetUserPassword(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	targetID, err := a.targetFromParams(c)
	if err != nil {
		return RenderValidation(c, err)
	}

	payload := new(PasswordResetPayload)
	if err := c.BodyParser(payload); err != nil {
		return RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return RenderValidation(c, err)
	}

	if err := a.Accounts.ResetPassword(c.Context(), account, targetID, payload.Password); err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"reset": true})
}

func (a *APIController) GetSettings(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	if err := a.Guard.Authorize(account, OpManageSettings, nil); err != nil {
		return RenderError(c, err)
	}

	doc, err := a.Settings.All()
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"settings": doc})
}

func (a *APIController) UpdateSettings(c *fiber.Ctx) error {
	account := AccountFromCtx(c)
	if account == nil {
		return RenderError(c, ErrInvalidCredentials)
	}

	if err := a.Guard.Authorize(account, OpManageSettings, nil); err != nil {
		return RenderError(c, err)
	}

	patch := map[string]any{}
	if err := c.BodyParser(&patch); err != nil {
		return RenderValidation(c, err)
	}

	doc, err := a.Settings.Update(patch)
	if err != nil {
		return RenderError(c, err)
	}

	return c.JSON(fiber.Map{"settings": doc})
}
