package proto

import (
	"context"
	"encoding/json"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/config"
	pagemeta "github.com/Rogue-Bear-Innovations/bookmarker-api/internal/metadata"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/service"
)

var kindCodes = map[service.Kind]codes.Code{
	service.KindNotFound:        codes.NotFound,
	service.KindDuplicate:       codes.AlreadyExists,
	service.KindForbidden:       codes.PermissionDenied,
	service.KindUnauthorized:    codes.Unauthenticated,
	service.KindInvalidArgument: codes.InvalidArgument,
	service.KindInternal:        codes.Internal,
}

type BookmarkerServerImpl struct {
	server    *grpc.Server
	general   *service.General
	bookmarks *service.Bookmarks
	fetcher   *pagemeta.Fetcher
	logger    *zap.SugaredLogger
}

func NewGRPCServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	general *service.General,
	bookmarks *service.Bookmarks,
	fetcher *pagemeta.Fetcher,
	logger *zap.SugaredLogger,
) *BookmarkerServerImpl {
	instance := &BookmarkerServerImpl{
		general:   general,
		bookmarks: bookmarks,
		fetcher:   fetcher,
		logger:    logger,
	}
	instance.server = grpc.NewServer(grpc.ChainUnaryInterceptor(instance.translateErrors, instance.authenticate))
	RegisterBookmarkerServer(instance.server, instance)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listen := cfg.Host + ":" + cfg.GRPCPort
			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return errors.Wrap(err, "failed to listen")
			}
			logger.Infow("Starting GRPC server.", "listen", listen)
			go func() {
				if err := instance.Serve(lis); err != nil {
					logger.Errorw("GRPC server failed", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping GRPC server.")
			instance.server.GracefulStop()
			return nil
		},
	})

	return instance
}

func (s *BookmarkerServerImpl) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

type userKey struct{}

// GetBookmarks returns {"items": [...]} with the caller's bookmarks. Optional
// request fields: "query" searches, "tags" filters by a list of tag ids.
func (s *BookmarkerServerImpl) GetBookmarks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := ctx.Value(userKey{}).(uuid.UUID)
	if !ok {
		return nil, errors.Wrap(service.ErrUnauthorized, "no user in context")
	}
	fields := req.GetFields()

	var (
		items []models.BookmarkResp
		err   error
	)
	if query := fields["query"].GetStringValue(); query != "" {
		items, err = s.bookmarks.Search(ctx, userID, query)
	} else {
		tagIDs, perr := parseIDs(fields["tags"].GetListValue())
		if perr != nil {
			return nil, perr
		}
		items, err = s.bookmarks.ListByTags(ctx, userID, tagIDs)
	}
	if err != nil {
		return nil, err
	}

	list, err := toValue(items)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"items": list}}, nil
}

// FetchMetadata reads {"url": "..."} and returns the page metadata.
func (s *BookmarkerServerImpl) FetchMetadata(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := strings.TrimSpace(req.GetFields()["url"].GetStringValue())
	if raw == "" {
		return nil, errors.Wrap(service.ErrInvalidArgument, "url is required")
	}
	meta := s.fetcher.Fetch(ctx, raw)
	value, err := toValue(models.MetadataResp{
		Title:       meta.Title,
		Description: meta.Description,
		FaviconURL:  meta.FaviconURL,
		ImageURL:    meta.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	return value.GetStructValue(), nil
}

// authenticate reads "authorization: Bearer <token>" from the call metadata.
func (s *BookmarkerServerImpl) authenticate(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, errors.Wrap(service.ErrUnauthorized, "missing authorization metadata")
	}
	scheme, token, ok := strings.Cut(values[0], " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return nil, errors.Wrap(service.ErrUnauthorized, "authorization is not a bearer token")
	}
	userID, err := s.general.Authenticate(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	return handler(context.WithValue(ctx, userKey{}, userID), req)
}

func (s *BookmarkerServerImpl) translateErrors(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	if _, ok := status.FromError(err); ok {
		return nil, err
	}

	kind := service.KindOf(err)
	if kind == service.KindInternal {
		s.logger.Errorw("grpc call failed", "method", info.FullMethod, "err", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	s.logger.Warnw("grpc call rejected", "method", info.FullMethod, "code", kind, "err", err)
	return nil, status.Error(kindCodes[kind], err.Error())
}

func parseIDs(list *structpb.ListValue) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, errors.Wrapf(service.ErrInvalidArgument, "invalid tag id %q", v.GetStringValue())
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// toValue converts v through its JSON form, so field names match the HTTP API.
func toValue(v interface{}) (*structpb.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errors.Wrap(err, "unmarshal")
	}
	value, err := structpb.NewValue(generic)
	if err != nil {
		return nil, errors.Wrap(err, "convert to struct value")
	}
	return value, nil
}
