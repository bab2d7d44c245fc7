package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/multierr"

	"github.com/sutdhousing/portal/core/student"
)

const msgRequired = "this field is required"

func studentPath(studentID string, suffix ...string) string {
	return "/students/" + url.PathEscape(studentID) + strings.Join(suffix, "")
}

func (c *Client) GetStudent(ctx context.Context, studentID string) (student.Student, error) {
	var s student.Student
	err := c.do(ctx, http.MethodGet, studentPath(studentID), nil, &s)
	return s, err
}

// UpdateStudent changes the editable profile fields. Nil fields are left untouched.
func (c *Client) UpdateStudent(ctx context.Context, studentID string, ep student.EditableProfile) (student.Student, error) {
	var s student.Student
	err := c.do(ctx, http.MethodPut, studentPath(studentID), ep, &s)
	return s, err
}

func (c *Client) SetHouseGuardian(ctx context.Context, studentID string) (student.Student, error) {
	var s student.Student
	err := c.do(ctx, http.MethodPut, studentPath(studentID, "/set_hg"), nil, &s)
	return s, err
}

func (c *Client) RevokeHouseGuardian(ctx context.Context, studentID string) (student.Student, error) {
	var s student.Student
	err := c.do(ctx, http.MethodPut, studentPath(studentID, "/revoke_hg"), nil, &s)
	return s, err
}

// SetHouseGuardians grants the role to every student in a single request.
func (c *Client) SetHouseGuardians(ctx context.Context, studentIDs []string) ([]student.HouseGuardianResult, error) {
	var res []student.HouseGuardianResult
	body := map[string][]string{"student_ids": studentIDs}
	err := c.do(ctx, http.MethodPut, "/students/house_guardians", body, &res)
	return res, err
}

func (c *Client) UpdateRoomProfile(ctx context.Context, studentID string, rp student.RoomProfile) (student.Student, error) {
	var s student.Student
	err := c.do(ctx, http.MethodPut, studentPath(studentID, "/update_room_profile"), rp, &s)
	return s, err
}

func (c *Client) UpdateLifestyleProfile(ctx context.Context, studentID string, lp student.LifestyleProfile) (student.Student, error) {
	var s student.Student
	err := c.do(ctx, http.MethodPut, studentPath(studentID, "/update_lifestyle_profile"), lp, &s)
	return s, err
}

// =========================================================================
// Forms

// AddHouseGuardian is a growable list of student ID entries.
type AddHouseGuardian struct {
	entries []string
}

// Add appends an entry and returns its index.
func (f *AddHouseGuardian) Add(studentID string) int {
	f.entries = append(f.entries, studentID)
	return len(f.entries) - 1
}

// Set overwrites the entry at i. Out of range indexes are ignored.
func (f *AddHouseGuardian) Set(i int, studentID string) {
	if i >= 0 && i < len(f.entries) {
		f.entries[i] = studentID
	}
}

// Remove drops the entry at i. Out of range indexes are ignored.
func (f *AddHouseGuardian) Remove(i int) {
	if i >= 0 && i < len(f.entries) {
		f.entries = append(f.entries[:i], f.entries[i+1:]...)
	}
}

// Entries returns the non blank student IDs, trimmed.
func (f *AddHouseGuardian) Entries() []string {
	ids := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		if e = strings.TrimSpace(e); e != "" {
			ids = append(ids, e)
		}
	}
	return ids
}

func (f *AddHouseGuardian) Validate() error {
	if len(f.Entries()) == 0 {
		return ValidationError{"student_ids": msgRequired}
	}
	return nil
}

// Submit grants the house guardian role to every entry, one request each.
// Every entry gets a result; the returned error combines the failed ones.
func (f *AddHouseGuardian) Submit(ctx context.Context, c *Client) ([]student.HouseGuardianResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var errs error
	ids := f.Entries()
	results := make([]student.HouseGuardianResult, 0, len(ids))
	for _, id := range ids {
		res := student.HouseGuardianResult{StudentID: id, OK: true}
		if _, err := c.SetHouseGuardian(ctx, id); err != nil {
			res.OK = false
			res.Error = err.Error()
			errs = multierr.Append(errs, err)
		}
		results = append(results, res)
	}
	return results, errs
}

// RoomProfileEdit edits the room preference of a student.
type RoomProfileEdit struct {
	StudentID string
	Profile   student.RoomProfile
}

func NewRoomProfileEdit(studentID string, current student.RoomProfile) *RoomProfileEdit {
	return &RoomProfileEdit{StudentID: studentID, Profile: current}
}

func (f *RoomProfileEdit) Validate() error {
	verr := make(ValidationError)
	required := map[string]string{
		"room_type":     f.Profile.RoomType,
		"room_type_2nd": f.Profile.RoomType2nd,
		"block":         f.Profile.Block,
		"block_2nd":     f.Profile.Block2nd,
		"level_range":   f.Profile.LevelRange,
		"window_facing": f.Profile.WindowFacing,
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			verr[k] = msgRequired
		}
	}
	if len(f.Profile.WeightageOrder) == 0 {
		verr["weightage_order"] = msgRequired
	}
	if f.StudentID == "" {
		verr["student_id"] = msgRequired
	}
	if len(verr) > 0 {
		return verr
	}
	return nil
}

func (f *RoomProfileEdit) Submit(ctx context.Context, c *Client) (student.Student, error) {
	if err := f.Validate(); err != nil {
		return student.Student{}, err
	}
	return c.UpdateRoomProfile(ctx, f.StudentID, f.Profile)
}

// LifestyleData edits the lifestyle preference of a student.
// OnChange, when set, is notified of every change.
type LifestyleData struct {
	StudentID string
	Profile   student.LifestyleProfile
	OnChange  func(student.LifestyleProfile)
}

func NewLifestyleData(studentID string, current student.LifestyleProfile) *LifestyleData {
	return &LifestyleData{StudentID: studentID, Profile: current}
}

// Update applies change to the profile and notifies OnChange.
func (f *LifestyleData) Update(change func(lp *student.LifestyleProfile)) {
	change(&f.Profile)
	if f.OnChange != nil {
		f.OnChange(f.Profile)
	}
}

func (f *LifestyleData) Validate() error {
	verr := make(ValidationError)
	if f.StudentID == "" {
		verr["student_id"] = msgRequired
	}
	if f.Profile.WakeupTime == 0 {
		verr["wakeup_time"] = msgRequired
	}
	if len(verr) > 0 {
		return verr
	}
	return nil
}

func (f *LifestyleData) Submit(ctx context.Context, c *Client) (student.Student, error) {
	if err := f.Validate(); err != nil {
		return student.Student{}, err
	}
	return c.UpdateLifestyleProfile(ctx, f.StudentID, f.Profile)
}
