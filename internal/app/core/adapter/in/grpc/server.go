package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-funds-ledger/internal/app/core/usecase"
)

const dateLayout = "2006-01-02"

type GrpcServer struct {
	core *usecase.CoreUseCase
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

// Register 註冊 (不需要 token)
func (s *GrpcServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := usecase.RegisterInput{
		Username: stringField(req, "username"),
		Password: stringField(req, "password"),
		Email:    stringField(req, "email"),
		Phone:    stringField(req, "phone"),
		FullName: stringField(req, "full_name"),
	}

	var err error
	if in.BirthDate, err = dateField(req, "birth_date"); err != nil {
		return nil, err
	}
	initial, ok, err := decimalField(req, "initial_balance")
	if err != nil {
		return nil, err
	}
	if ok {
		in.InitialBalance = initial
	}
	ceiling, ok, err := decimalField(req, "max_balance")
	if err != nil {
		return nil, err
	}
	if ok {
		in.MaxBalance = &ceiling
	}

	user, err := s.core.Register(ctx, in)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(userMap(user))
}

// Login 以帳密換取 token (不需要 token)
func (s *GrpcServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token, err := s.core.Login(ctx, stringField(req, "username"), stringField(req, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"token": token})
}

// UpdateContact 修改 email / phone
func (s *GrpcServer) UpdateContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := int64Field(req, "user_id")
	if err != nil {
		return nil, err
	}
	user, err := s.core.UpdateContact(ctx, userID, usecase.ContactInput{
		Email: stringField(req, "email"),
		Phone: stringField(req, "phone"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(userMap(user))
}

// Transfer 由 token 的使用者轉帳給 to_user_id
func (s *GrpcServer) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	initiator, ok := UsernameFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing caller identity")
	}
	toUserID, err := int64Field(req, "to_user_id")
	if err != nil {
		return nil, err
	}
	amount, ok, err := decimalField(req, "amount")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "amount is required")
	}

	tran, err := s.core.Transfer(ctx, initiator, toUserID, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		"transfer_id":  tran.ID.String(),
		"from_user_id": tran.FromUserID,
		"to_user_id":   tran.ToUserID,
		"amount":       tran.Amount.StringFixed(domain.MoneyScale),
		"from_balance": tran.FromBalance.StringFixed(domain.MoneyScale),
		"to_balance":   tran.ToBalance.StringFixed(domain.MoneyScale),
		"created_at":   tran.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// Search 依條件搜尋使用者
func (s *GrpcServer) Search(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter := domain.UserFilter{
		FullName: stringField(req, "full_name"),
		Email:    stringField(req, "email"),
		Phone:    stringField(req, "phone"),
	}
	if _, ok := req.GetFields()["born_after"]; ok {
		bornAfter, err := dateField(req, "born_after")
		if err != nil {
			return nil, err
		}
		filter.BornAfter = &bornAfter
	}
	if _, ok := req.GetFields()["page"]; ok {
		page, err := int64Field(req, "page")
		if err != nil {
			return nil, err
		}
		filter.Page = int(page)
	}
	if _, ok := req.GetFields()["page_size"]; ok {
		size, err := int64Field(req, "page_size")
		if err != nil {
			return nil, err
		}
		filter.PageSize = int(size)
	}

	users, err := s.core.Search(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	list := make([]any, 0, len(users))
	for _, u := range users {
		list = append(list, userMap(u))
	}
	return newStruct(map[string]any{"users": list})
}

// GetBalance 取得使用者帳戶餘額
func (s *GrpcServer) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := int64Field(req, "user_id")
	if err != nil {
		return nil, err
	}
	account, err := s.core.GetAccountBalance(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	m := accountMap(account)
	m["user_id"] = userID
	return newStruct(m)
}

func userMap(u *domain.User) map[string]any {
	m := map[string]any{
		"user_id":    u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"phone":      u.Phone,
		"full_name":  u.FullName,
		"birth_date": u.BirthDate.Format(dateLayout),
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if u.Account != nil {
		m["account"] = accountMap(u.Account)
	}
	return m
}

func accountMap(a *domain.Account) map[string]any {
	return map[string]any{
		"account_id":      a.ID,
		"initial_balance": a.InitialBalance.StringFixed(domain.MoneyScale),
		"balance":         a.Balance.StringFixed(domain.MoneyScale),
		"max_balance":     a.MaxBalance.StringFixed(domain.MoneyScale),
	}
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// int64Field 接受 number 或字串形式的整數
func int64Field(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != float64(int64(n)) {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil || !d.IsInteger() {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
		}
		return d.IntPart(), nil
	}
	return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
}

// decimalField 金額建議以字串傳遞以免失去精度，number 也接受
func decimalField(s *structpb.Struct, key string) (decimal.Decimal, bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return decimal.Zero, false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Zero, false, status.Errorf(codes.InvalidArgument, "%s is not a decimal: %q", key, kind.StringValue)
		}
		return d, true, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), true, nil
	case *structpb.Value_NullValue:
		return decimal.Zero, false, nil
	}
	return decimal.Zero, false, status.Errorf(codes.InvalidArgument, "%s must be a decimal string", key)
}

func dateField(s *structpb.Struct, key string) (time.Time, error) {
	raw := stringField(s, key)
	if raw == "" {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s is required (YYYY-MM-DD)", key)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s must be YYYY-MM-DD", key)
	}
	return t, nil
}

var _ LedgerServer = (*GrpcServer)(nil)
