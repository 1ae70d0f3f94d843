package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// MergeClub reconciles one club into the store under the non-regression
// rule. A club without a code is rejected; the caller treats rejection as
// a per-record error, not a store failure.
func (s *Store) MergeClub(ctx context.Context, club entities.Club) error {
	if club.Code == "" {
		return errors.NewRejectError("club", club.Code, "empty club code")
	}

	return s.inTxStore(ctx, "merge", "clubs", func(tx *sql.Tx) error {
		stored, found, err := readClub(ctx, tx, club.Code)
		if err != nil {
			return err
		}
		if found {
			club = mergeClub(stored, club)
		}
		// Province is structural: when neither side observed one, derive
		// it from the code prefix rather than storing absence.
		if !club.Province.Present() {
			club.Province = entities.DeriveProvince(club.Code)
		}
		return writeClub(ctx, tx, club)
	})
}

// mergeClub applies the field-wise non-regression merge.
func mergeClub(stored, incoming entities.Club) entities.Club {
	merged := entities.Club{Code: stored.Code}
	merged.Name = optional.Merge(stored.Name, incoming.Name)
	merged.Province = optional.Merge(stored.Province, incoming.Province)
	merged.FullName = optional.Merge(stored.FullName, incoming.FullName)
	merged.Email = optional.Merge(stored.Email, incoming.Email)
	merged.Phone = optional.Merge(stored.Phone, incoming.Phone)
	merged.Status = optional.Merge(stored.Status, incoming.Status)
	merged.Website = optional.Merge(stored.Website, incoming.Website)
	merged.HasShower = optional.Merge(stored.HasShower, incoming.HasShower)
	merged.VenueName = optional.Merge(stored.VenueName, incoming.VenueName)
	merged.VenueAddress = optional.Merge(stored.VenueAddress, incoming.VenueAddress)
	merged.VenuePhone = optional.Merge(stored.VenuePhone, incoming.VenuePhone)
	merged.VenuePMR = optional.Merge(stored.VenuePMR, incoming.VenuePMR)
	merged.VenueRemarks = optional.Merge(stored.VenueRemarks, incoming.VenueRemarks)
	merged.TeamsMen = optional.Merge(stored.TeamsMen, incoming.TeamsMen)
	merged.TeamsWomen = optional.Merge(stored.TeamsWomen, incoming.TeamsWomen)
	merged.TeamsYouth = optional.Merge(stored.TeamsYouth, incoming.TeamsYouth)
	merged.TeamsVeterans = optional.Merge(stored.TeamsVeterans, incoming.TeamsVeterans)
	merged.Label = optional.Merge(stored.Label, incoming.Label)
	merged.Palette = optional.Merge(stored.Palette, incoming.Palette)
	return merged
}

const clubColumns = `code, name, province, full_name, email, phone, status, website,
	has_shower, venue_name, venue_address, venue_phone, venue_pmr, venue_remarks,
	teams_men, teams_women, teams_youth, teams_veterans, label, palette`

func readClub(ctx context.Context, tx *sql.Tx, code string) (entities.Club, bool, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+clubColumns+` FROM clubs WHERE code = ?`, code)
	club, err := scanClub(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Club{}, false, nil
	}
	if err != nil {
		return entities.Club{}, false, err
	}
	return club, true, nil
}

func writeClub(ctx context.Context, tx *sql.Tx, c entities.Club) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO clubs (`+clubColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name, province = excluded.province,
			full_name = excluded.full_name, email = excluded.email,
			phone = excluded.phone, status = excluded.status,
			website = excluded.website, has_shower = excluded.has_shower,
			venue_name = excluded.venue_name, venue_address = excluded.venue_address,
			venue_phone = excluded.venue_phone, venue_pmr = excluded.venue_pmr,
			venue_remarks = excluded.venue_remarks, teams_men = excluded.teams_men,
			teams_women = excluded.teams_women, teams_youth = excluded.teams_youth,
			teams_veterans = excluded.teams_veterans, label = excluded.label,
			palette = excluded.palette`,
		c.Code, c.Name.Ptr(), c.Province.Ptr(), c.FullName.Ptr(), c.Email.Ptr(),
		c.Phone.Ptr(), c.Status.Ptr(), c.Website.Ptr(), c.HasShower.Ptr(),
		c.VenueName.Ptr(), c.VenueAddress.Ptr(), c.VenuePhone.Ptr(), c.VenuePMR.Ptr(),
		c.VenueRemarks.Ptr(), c.TeamsMen.Ptr(), c.TeamsWomen.Ptr(), c.TeamsYouth.Ptr(),
		c.TeamsVeterans.Ptr(), c.Label.Ptr(), c.Palette.Ptr())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClub(row rowScanner) (entities.Club, error) {
	var c entities.Club
	var name, province, fullName, email, phone, status, website sql.NullString
	var venueName, venueAddress, venuePhone, venueRemarks, label, palette sql.NullString
	var hasShower, venuePMR sql.NullBool
	var teamsMen, teamsWomen, teamsYouth, teamsVeterans sql.NullInt64

	err := row.Scan(&c.Code, &name, &province, &fullName, &email, &phone, &status,
		&website, &hasShower, &venueName, &venueAddress, &venuePhone, &venuePMR,
		&venueRemarks, &teamsMen, &teamsWomen, &teamsYouth, &teamsVeterans,
		&label, &palette)
	if err != nil {
		return entities.Club{}, err
	}

	c.Name = optStr(name)
	c.Province = optStr(province)
	c.FullName = optStr(fullName)
	c.Email = optStr(email)
	c.Phone = optStr(phone)
	c.Status = optStr(status)
	c.Website = optStr(website)
	c.HasShower = optBool(hasShower)
	c.VenueName = optStr(venueName)
	c.VenueAddress = optStr(venueAddress)
	c.VenuePhone = optStr(venuePhone)
	c.VenuePMR = optBool(venuePMR)
	c.VenueRemarks = optStr(venueRemarks)
	c.TeamsMen = optInt(teamsMen)
	c.TeamsWomen = optInt(teamsWomen)
	c.TeamsYouth = optInt(teamsYouth)
	c.TeamsVeterans = optInt(teamsVeterans)
	c.Label = optStr(label)
	c.Palette = optStr(palette)
	return c, nil
}

// GetClub returns one club by code.
func (s *Store) GetClub(ctx context.Context, code string) (entities.Club, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clubColumns+` FROM clubs WHERE code = ?`, code)
	club, err := scanClub(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Club{}, errors.ErrNotFound
	}
	if err != nil {
		return entities.Club{}, errors.WrapStore("read", "clubs", err)
	}
	return club, nil
}

// ListClubs returns all clubs ordered by code, optionally filtered by
// province.
func (s *Store) ListClubs(ctx context.Context, province string) ([]entities.Club, error) {
	query := `SELECT ` + clubColumns + ` FROM clubs ORDER BY code`
	args := []any{}
	if province != "" {
		query = `SELECT ` + clubColumns + ` FROM clubs WHERE province = ? ORDER BY code`
		args = append(args, province)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("read", "clubs", err)
	}
	defer rows.Close()

	var clubs []entities.Club
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, errors.WrapStore("read", "clubs", err)
		}
		clubs = append(clubs, club)
	}
	return clubs, errors.WrapStore("read", "clubs", rows.Err())
}

// inTxStore wraps inTx, classifying any transaction failure as a fatal
// store error unless it already carries a domain shape.
func (s *Store) inTxStore(ctx context.Context, operation, table string, fn func(tx *sql.Tx) error) error {
	err := s.inTx(ctx, fn)
	if err == nil {
		return nil
	}
	var reject *errors.RejectError
	if stderrors.As(err, &reject) ||
		stderrors.Is(err, errors.ErrConflict) ||
		stderrors.Is(err, errors.ErrNotFound) ||
		stderrors.Is(err, errors.ErrNotRunning) {
		return err
	}
	return errors.WrapStore(operation, table, err)
}
