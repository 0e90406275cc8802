package registry

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/normalize"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

// minPhoneDigits is the shortest canonical phone worth storing; anything
// shorter cannot be a Hungarian subscriber number.
const minPhoneDigits = 8

// IdentityStore is the identity persistence the builder writes through.
type IdentityStore interface {
	Create(ctx context.Context, identity models.Identity) (*models.Identity, error)
	Get(ctx context.Context, gcmid int64) (*models.Identity, error)
	List(ctx context.Context) ([]models.Identity, error)
	Update(ctx context.Context, identity *models.Identity) error
	AddVariant(ctx context.Context, variant models.NameVariant) (bool, error)
	ListVariants(ctx context.Context, gcmid int64) ([]models.NameVariant, error)
	ListAllVariants(ctx context.Context) ([]models.NameVariant, error)
}

// TokenStore is the token index persistence.
type TokenStore interface {
	Replace(ctx context.Context, gcmid int64, tokens []string) error
	ListAll(ctx context.Context) ([]models.NameToken, error)
}

// ContactStore is the contact persistence.
type ContactStore interface {
	Add(ctx context.Context, contact models.Contact) error
	List(ctx context.Context, gcmid int64, kind models.ContactKind) ([]string, error)
	ListAll(ctx context.Context) ([]models.Contact, error)
}

// Builder is the only writer of the registry. It enrolls and enriches
// identities, regenerates the token index when a name set changes, and
// assembles the immutable snapshot each run scores against.
type Builder struct {
	identities IdentityStore
	tokens     TokenStore
	contacts   ContactStore
	logger     ectologger.Logger
}

func NewBuilder(identities IdentityStore, tokens TokenStore, contacts ContactStore, logger ectologger.Logger) *Builder {
	return &Builder{
		identities: identities,
		tokens:     tokens,
		contacts:   contacts,
		logger:     logger,
	}
}

// LoadSnapshot reconstructs the four lookup relations from the persisted
// registry. Called before every scoring run so stale lookups are never
// scored against.
func (b *Builder) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Builder.LoadSnapshot")
	defer span.End()

	log := b.logger.WithContext(ctx).WithFields(map[string]any{"method": "LoadSnapshot"})

	identities, err := b.identities.List(ctx)
	if err != nil {
		return nil, err
	}

	nameTokens, err := b.tokens.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	contacts, err := b.contacts.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	input := SnapshotInput{
		Tokens:      map[int64][]string{},
		Emails:      map[int64][]string{},
		Phones:      map[int64][]string{},
		Departments: map[int64]string{},
		Names:       map[int64]string{},
	}

	for _, identity := range identities {
		input.Names[identity.GCMID] = identity.DisplayName()
		input.Departments[identity.GCMID] = normalize.Department(identity.Department)
	}
	for _, token := range nameTokens {
		input.Tokens[token.GCMID] = append(input.Tokens[token.GCMID], token.Token)
	}
	for _, contact := range contacts {
		switch contact.Kind {
		case models.ContactKindEmail:
			input.Emails[contact.GCMID] = append(input.Emails[contact.GCMID], contact.Value)
		case models.ContactKindPhone:
			input.Phones[contact.GCMID] = append(input.Phones[contact.GCMID], contact.Value)
		}
	}

	snapshot, err := NewSnapshot(input)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{"identities": snapshot.Size()}).Info("Loaded registry snapshot")
	return snapshot, nil
}

// GetIdentity returns one identity with its name variants and its canonical
// contacts attached.
func (b *Builder) GetIdentity(ctx context.Context, gcmid int64) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Builder.GetIdentity")
	defer span.End()

	identity, err := b.identities.Get(ctx, gcmid)
	if err != nil {
		return nil, err
	}

	emails, err := b.contacts.List(ctx, gcmid, models.ContactKindEmail)
	if err != nil {
		return nil, err
	}
	phones, err := b.contacts.List(ctx, gcmid, models.ContactKindPhone)
	if err != nil {
		return nil, err
	}
	identity.Emails = emails
	identity.Phones = phones

	return identity, nil
}

// Enroll creates an identity from a trusted directory entry: the identity
// row, its initial name variants, its validated contacts and its token set.
func (b *Builder) Enroll(ctx context.Context, req models.CreateIdentityRequest) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Builder.Enroll")
	defer span.End()

	department := strings.TrimSpace(req.Department)
	title := strings.TrimSpace(req.Title)
	if department == "" && title != "" {
		department = normalize.DepartmentForTitle(title)
	}

	identity, err := b.identities.Create(ctx, models.Identity{
		LastName:   strings.TrimSpace(req.LastName),
		FirstName:  strings.TrimSpace(req.FirstName),
		Nickname:   strings.TrimSpace(req.Nickname),
		Title:      title,
		Department: department,
	})
	if err != nil {
		return nil, err
	}

	if _, err := b.identities.AddVariant(ctx, models.NameVariant{
		GCMID:  identity.GCMID,
		Name:   identity.DisplayName(),
		Origin: "directory",
	}); err != nil {
		return nil, err
	}
	if identity.Nickname != "" {
		if _, err := b.identities.AddVariant(ctx, models.NameVariant{
			GCMID:  identity.GCMID,
			Name:   identity.LastName + " " + identity.Nickname,
			Origin: "directory",
		}); err != nil {
			return nil, err
		}
	}

	if err := b.addContacts(ctx, identity.GCMID, req.Emails, req.Phones); err != nil {
		return nil, err
	}

	if err := b.RebuildTokens(ctx, identity.GCMID); err != nil {
		return nil, err
	}

	return b.GetIdentity(ctx, identity.GCMID)
}

// Enrich adds attributes to an existing identity without destroying what is
// already recorded, and rebuilds the token index when the name set changed.
func (b *Builder) Enrich(ctx context.Context, gcmid int64, req models.UpdateIdentityRequest) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Builder.Enrich")
	defer span.End()

	identity, err := b.identities.Get(ctx, gcmid)
	if err != nil {
		return nil, err
	}

	if req.Nickname != nil {
		identity.Nickname = strings.TrimSpace(*req.Nickname)
	}
	if req.Title != nil {
		identity.Title = strings.TrimSpace(*req.Title)
	}
	if req.Department != nil {
		identity.Department = strings.TrimSpace(*req.Department)
	}
	if err := b.identities.Update(ctx, identity); err != nil {
		return nil, err
	}

	if err := b.addContacts(ctx, gcmid, req.Emails, req.Phones); err != nil {
		return nil, err
	}

	nameSetChanged := false
	if req.NameAlias != nil && strings.TrimSpace(*req.NameAlias) != "" {
		added, err := b.identities.AddVariant(ctx, models.NameVariant{
			GCMID:  gcmid,
			Name:   strings.TrimSpace(*req.NameAlias),
			Origin: "directory",
		})
		if err != nil {
			return nil, err
		}
		nameSetChanged = added
	}

	if nameSetChanged {
		if err := b.RebuildTokens(ctx, gcmid); err != nil {
			return nil, err
		}
	}

	return b.GetIdentity(ctx, gcmid)
}

// ObserveConfirmed folds a confirmed record's spelling and contacts into its
// identity. The registry only grows; nothing is overwritten.
func (b *Builder) ObserveConfirmed(ctx context.Context, gcmid int64, record models.CrewRecord) error {
	ctx, span := tracing.StartSpan(ctx, "registry.Builder.ObserveConfirmed")
	defer span.End()

	added, err := b.identities.AddVariant(ctx, models.NameVariant{
		GCMID:  gcmid,
		Name:   strings.TrimSpace(record.Name),
		Origin: string(record.Origin),
	})
	if err != nil {
		return err
	}

	if err := b.addContacts(ctx, gcmid, []string{record.Email}, []string{record.Phone}); err != nil {
		return err
	}

	if added {
		return b.RebuildTokens(ctx, gcmid)
	}
	return nil
}

// Promote creates a new identity from a reviewed new-identity candidate.
// Names arrive in "Last First" order; the first token becomes the surname.
func (b *Builder) Promote(ctx context.Context, item models.ReviewItem) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Builder.Promote")
	defer span.End()

	name := strings.TrimSpace(item.Name)
	if name == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "cannot promote a record without a name")
	}

	lastName := name
	firstName := ""
	if idx := strings.IndexAny(name, " \t"); idx > 0 {
		lastName = name[:idx]
		firstName = strings.TrimSpace(name[idx+1:])
	}

	now := time.Now().UTC()
	identity, err := b.identities.Create(ctx, models.Identity{
		LastName:   lastName,
		FirstName:  firstName,
		Department: item.Department,
		PromotedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	if _, err := b.identities.AddVariant(ctx, models.NameVariant{
		GCMID:  identity.GCMID,
		Name:   name,
		Origin: "promotion",
	}); err != nil {
		return nil, err
	}

	if err := b.addContacts(ctx, identity.GCMID, []string{item.Email}, []string{item.Phone}); err != nil {
		return nil, err
	}

	if err := b.RebuildTokens(ctx, identity.GCMID); err != nil {
		return nil, err
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"gcmid": identity.GCMID,
		"name":  name,
	}).Info("Promoted new identity")

	return b.GetIdentity(ctx, identity.GCMID)
}

// RebuildTokens regenerates the deduplicated token set for an identity from
// every name variant on record.
func (b *Builder) RebuildTokens(ctx context.Context, gcmid int64) error {
	ctx, span := tracing.StartSpan(ctx, "registry.Builder.RebuildTokens")
	defer span.End()

	variants, err := b.identities.ListVariants(ctx, gcmid)
	if err != nil {
		return err
	}

	var tokens []string
	seen := map[string]bool{}
	for _, variant := range variants {
		for _, token := range normalize.IndexTokens(variant.Name) {
			if !seen[token] {
				seen[token] = true
				tokens = append(tokens, token)
			}
		}
	}

	return b.tokens.Replace(ctx, gcmid, tokens)
}

// AlignRecords maps heterogeneous source payloads onto the fixed record
// schema consumed by the engine. Missing fields become blanks, never nulls,
// so downstream joins stay total. Rows carrying the same source identifier
// within the same project are one person; only the first is kept.
func (b *Builder) AlignRecords(runID string, messages []models.CrewRecordMessage) []models.CrewRecord {
	now := time.Now().UTC()
	records := make([]models.CrewRecord, 0, len(messages))
	seen := map[string]bool{}
	for _, message := range messages {
		department := strings.TrimSpace(message.Department)
		title := strings.TrimSpace(message.Title)
		if department == "" && title != "" {
			department = normalize.DepartmentForTitle(title)
		}
		record := models.CrewRecord{
			ID:         uuid.New().String(),
			RunID:      runID,
			Origin:     message.Origin,
			SourceID:   strings.TrimSpace(message.SourceID),
			Project:    strings.TrimSpace(message.Project),
			Name:       strings.TrimSpace(message.Name),
			Email:      strings.TrimSpace(message.Email),
			Phone:      strings.TrimSpace(message.Phone),
			Department: department,
			Title:      title,
			Payload:    message.Payload,
			CreatedAt:  now,
		}
		if record.SourceID != "" {
			key := record.JoinKey()
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		records = append(records, record)
	}
	return records
}

// addContacts canonicalizes and stores contact values, dropping anything too
// malformed to ever match: emails without an "@", phones with fewer than
// eight digits.
func (b *Builder) addContacts(ctx context.Context, gcmid int64, emails, phones []string) error {
	for _, raw := range emails {
		email := normalize.Email(raw)
		if !strings.Contains(email, "@") {
			continue
		}
		if err := b.contacts.Add(ctx, models.Contact{GCMID: gcmid, Kind: models.ContactKindEmail, Value: email}); err != nil {
			return err
		}
	}
	for _, raw := range phones {
		phone := normalize.Phone(raw)
		if len(phone) < minPhoneDigits {
			continue
		}
		if err := b.contacts.Add(ctx, models.Contact{GCMID: gcmid, Kind: models.ContactKindPhone, Value: phone}); err != nil {
			return err
		}
	}
	return nil
}
