package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailflare/internal/models"
	"mailflare/internal/store"
)

// Correlation headers stamped onto every outbound message. The tracker and
// the send log join back to these.
const (
	HeaderCampaignID  = "X-Campaign-ID"
	HeaderGroupID     = "X-Group-ID"
	HeaderRecipientID = "X-Recipient-ID"
	HeaderABVariant   = "X-AB-Variant"
	HeaderABPhase     = "X-AB-Phase"
)

// Renderer turns raw campaign HTML into a tracked, per-recipient document.
type Renderer interface {
	Render(html, campaignID, groupID, recipientID string, footer store.Footer) (string, error)
}

// WinnerPicker decides which variant the follow-up blast uses.
type WinnerPicker interface {
	PickWinner(ctx context.Context, campaignID string) (models.Variant, error)
}

// ErrCampaignNotFound is returned by the synchronous send paths when the
// campaign id resolves to nothing. Callers map it to a 404 rather than a
// server failure.
var ErrCampaignNotFound = errors.New("campaign not found")

// Result summarizes one send phase.
type Result struct {
	Sent   int
	Failed int
}

// Executor runs the individual send phases of a campaign. It owns no
// scheduling logic; the dispatcher (or the send API) decides which phase
// runs and when.
type Executor struct {
	campaigns store.CampaignStore
	sendLog   store.SendLog
	jobs      store.JobStore
	winners   WinnerPicker
	renderer  Renderer
	transport Transport
	logger    *zap.Logger
}

func NewExecutor(
	campaigns store.CampaignStore,
	sendLog store.SendLog,
	jobs store.JobStore,
	winners WinnerPicker,
	renderer Renderer,
	transport Transport,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		campaigns: campaigns,
		sendLog:   sendLog,
		jobs:      jobs,
		winners:   winners,
		renderer:  renderer,
		transport: transport,
		logger:    logger,
	}
}

// SendNow is the synchronous send behind the send API. Plain campaigns go
// out to the whole group in one pass. A/B campaigns send only the test
// slice and leave the winner blast to the scheduled follow-up job.
func (e *Executor) SendNow(ctx context.Context, campaignID string, now time.Time) (Result, error) {
	data, recipients, footer, err := e.loadCampaign(ctx, campaignID)
	if err != nil {
		return Result{}, err
	}
	if data == nil {
		return Result{}, fmt.Errorf("campaign %s: %w", campaignID, ErrCampaignNotFound)
	}
	if len(recipients) == 0 {
		return Result{}, nil
	}

	if err := e.campaigns.MarkSendStarted(ctx, campaignID); err != nil {
		return Result{}, err
	}

	if !data.ABTest || data.ABType == models.ABTypeNone {
		result := e.sendAll(ctx, data, footer, recipients, "", "")
		if result.Sent > 0 {
			if err := e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusSent); err != nil {
				return result, err
			}
		}
		return result, nil
	}

	split := ComputeSplit(len(recipients), data.TestRatio, data.ABType)
	result := e.sendTestSlice(ctx, data, footer, recipients, split)

	// Timing tests cover everyone up front, so there is nothing left to
	// follow up on and the campaign is simply sent.
	if data.ABType.CoversFullPopulation() {
		if result.Sent > 0 {
			if err := e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusSent); err != nil {
				return result, err
			}
		}
		return result, nil
	}

	if result.Sent > 0 && split.TestCount > 0 {
		due := WinnerDueTime(now, data.DelayUnit, data.DelayValue)
		job := &models.FollowUpJob{
			CampaignID: campaignID,
			Type:       models.JobTypeSent,
			ABType:     data.ABType,
			Status:     models.JobStatusPending,
			ExecuteAt:  &due,
		}
		if _, err := e.jobs.InsertIfAbsent(ctx, job); err != nil {
			return result, err
		}
		if err := e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusTest); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ScheduleBatch registers a campaign for dispatcher-driven delivery. The
// insert is idempotent; re-scheduling an already queued campaign is a no-op.
func (e *Executor) ScheduleBatch(ctx context.Context, campaignID string, executeAt time.Time, execute2At *time.Time) error {
	data, err := e.campaigns.FetchSendData(ctx, campaignID)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("campaign %s: %w", campaignID, ErrCampaignNotFound)
	}

	job := &models.FollowUpJob{
		CampaignID: campaignID,
		Type:       models.JobTypeBatch,
		Status:     models.JobStatusPending,
		ExecuteAt:  &executeAt,
	}
	if data.ABTest {
		job.ABType = data.ABType
		if data.ABType.CoversFullPopulation() {
			job.Execute2At = execute2At
		} else if data.ABType != models.ABTypeNone {
			due := WinnerDueTime(executeAt, data.DelayUnit, data.DelayValue)
			job.Execute2At = &due
		}
	}

	inserted, err := e.jobs.InsertIfAbsent(ctx, job)
	if err != nil {
		return err
	}
	if !inserted {
		e.logger.Info("campaign already scheduled", zap.String("campaign_id", campaignID))
		return nil
	}
	return e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusPartial)
}

// SendBulk delivers a plain scheduled campaign to the whole group.
func (e *Executor) SendBulk(ctx context.Context, campaignID string) error {
	data, recipients, footer, err := e.loadCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if data == nil {
		e.logger.Warn("campaign vanished before bulk send", zap.String("campaign_id", campaignID))
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	if err := e.campaigns.MarkSendStarted(ctx, campaignID); err != nil {
		return err
	}

	result := e.sendAll(ctx, data, footer, recipients, "", "")
	e.logResult(campaignID, "bulk", result)
	if result.Sent > 0 {
		return e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusSent)
	}
	return nil
}

// RunInitialTest delivers the A/B test slice of a scheduled campaign.
func (e *Executor) RunInitialTest(ctx context.Context, campaignID string) error {
	data, recipients, footer, err := e.loadCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if data == nil || len(recipients) == 0 {
		return nil
	}

	if err := e.campaigns.MarkSendStarted(ctx, campaignID); err != nil {
		return err
	}

	split := ComputeSplit(len(recipients), data.TestRatio, data.ABType)
	result := e.sendTestSlice(ctx, data, footer, recipients, split)
	e.logResult(campaignID, "initial test", result)
	if result.Sent > 0 {
		return e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusTest)
	}
	return nil
}

// RunTimingBatch delivers one half of a timing test. The A half is the front
// of the recipient list; the B half is everyone not already sent variant A,
// so late group additions still get covered.
func (e *Executor) RunTimingBatch(ctx context.Context, campaignID string, useB bool) error {
	data, recipients, footer, err := e.loadCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if data == nil || len(recipients) == 0 {
		return nil
	}

	split := ComputeSplit(len(recipients), data.TestRatio, models.ABTypeTiming)

	if !useB {
		if err := e.campaigns.MarkSendStarted(ctx, campaignID); err != nil {
			return err
		}
		result := e.sendAll(ctx, data, footer, recipients[:split.ACount], models.VariantA, "")
		e.logResult(campaignID, "timing batch A", result)
		if result.Sent > 0 {
			return e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusPartial)
		}
		return nil
	}

	already, err := e.sendLog.SentRecipientIDsByVariant(ctx, campaignID, models.VariantA)
	if err != nil {
		return err
	}
	remaining := excludeRecipients(recipients, already)
	result := e.sendAll(ctx, data, footer, remaining, models.VariantB, "")
	e.logResult(campaignID, "timing batch B", result)
	if result.Sent > 0 {
		return e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusSent)
	}
	return nil
}

// RunWinnerFollowup picks the better-performing variant and sends it to
// every recipient the test phase skipped.
func (e *Executor) RunWinnerFollowup(ctx context.Context, campaignID string) error {
	data, recipients, footer, err := e.loadCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if data == nil || len(recipients) == 0 {
		return nil
	}
	if !data.ABTest || data.ABType == models.ABTypeNone {
		e.logger.Warn("winner follow-up on a non-AB campaign, skipping",
			zap.String("campaign_id", campaignID))
		return nil
	}

	winner, err := e.winners.PickWinner(ctx, campaignID)
	if err != nil {
		return err
	}

	already, err := e.sendLog.SentRecipientIDs(ctx, campaignID)
	if err != nil {
		return err
	}
	remaining := excludeRecipients(recipients, already)
	if len(remaining) == 0 {
		e.logger.Info("no recipients left for winner follow-up",
			zap.String("campaign_id", campaignID))
		return nil
	}

	result := e.sendAll(ctx, data, footer, remaining, winner, models.PhaseWinner)
	e.logResult(campaignID, "winner follow-up", result)
	if result.Sent > 0 {
		return e.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusSent)
	}
	return nil
}

func (e *Executor) loadCampaign(ctx context.Context, campaignID string) (*store.CampaignSendData, []models.Recipient, store.Footer, error) {
	data, err := e.campaigns.FetchSendData(ctx, campaignID)
	if err != nil || data == nil {
		return data, nil, store.Footer{}, err
	}
	recipients, err := e.campaigns.FetchRecipients(ctx, data.GroupID)
	if err != nil {
		return nil, nil, store.Footer{}, err
	}
	footer, err := e.campaigns.FetchFooter(ctx, data.GroupID)
	if err != nil {
		return nil, nil, store.Footer{}, err
	}
	return data, recipients, footer, nil
}

// sendTestSlice walks the ordered recipient list and sends each index its
// split-assigned variant. Indexes past the test slice stay untouched.
func (e *Executor) sendTestSlice(ctx context.Context, data *store.CampaignSendData, footer store.Footer, recipients []models.Recipient, split Split) Result {
	var result Result
	for i, r := range recipients {
		variant, inTest := split.VariantAt(i)
		if !inTest {
			continue
		}
		if err := e.sendOne(ctx, data, footer, &r, variant, models.PhaseTest); err != nil {
			result.Failed++
			e.logger.Error("send failed",
				zap.String("campaign_id", data.CampaignID),
				zap.String("recipient_id", r.ID),
				zap.Error(err))
			continue
		}
		result.Sent++
	}
	return result
}

func (e *Executor) sendAll(ctx context.Context, data *store.CampaignSendData, footer store.Footer, recipients []models.Recipient, variant models.Variant, phase models.SendPhase) Result {
	var result Result
	for _, r := range recipients {
		if err := e.sendOne(ctx, data, footer, &r, variant, phase); err != nil {
			result.Failed++
			e.logger.Error("send failed",
				zap.String("campaign_id", data.CampaignID),
				zap.String("recipient_id", r.ID),
				zap.Error(err))
			continue
		}
		result.Sent++
	}
	return result
}

func (e *Executor) sendOne(ctx context.Context, data *store.CampaignSendData, footer store.Footer, r *models.Recipient, variant models.Variant, phase models.SendPhase) error {
	subject, senderName, html := variantFields(data, variant)

	rendered, err := e.renderer.Render(html, data.CampaignID, data.GroupID, r.ID, footer)
	if err != nil {
		return fmt.Errorf("failed to render content: %w", err)
	}

	headers := map[string]string{
		HeaderCampaignID:  data.CampaignID,
		HeaderGroupID:     data.GroupID,
		HeaderRecipientID: r.ID,
	}
	if variant != "" {
		headers[HeaderABVariant] = string(variant)
	}
	if phase == models.PhaseWinner {
		headers[HeaderABPhase] = string(models.PhaseWinner)
	}

	msg := &Message{
		From:        data.SenderEmail,
		FromName:    senderName,
		To:          r.Email,
		Subject:     subject,
		PreviewText: data.PreviewText,
		HTML:        rendered,
		Headers:     headers,
	}
	if err := e.transport.Send(ctx, msg); err != nil {
		return err
	}

	entry := &models.MailLog{
		CampaignID:  data.CampaignID,
		GroupID:     data.GroupID,
		RecipientID: r.ID,
		MailFrom:    data.SenderEmail,
		MailTo:      r.Email,
		Variant:     variant,
		Phase:       phase,
	}
	if err := e.sendLog.Record(ctx, entry); err != nil {
		// The mail is already out; losing the log entry must not fail
		// the phase, but it does weaken later exclusion sets.
		e.logger.Error("failed to record send log",
			zap.String("campaign_id", data.CampaignID),
			zap.String("recipient_id", r.ID),
			zap.Error(err))
	}
	return nil
}

// variantFields resolves the subject, sender name and body for a variant.
// Only the dimension under test differs between A and B. The swap is
// unconditional; a blank B value is sent as-is so the two cohorts always
// receive what was configured for them.
func variantFields(data *store.CampaignSendData, variant models.Variant) (subject, senderName, html string) {
	subject = data.Subject
	senderName = data.SenderName
	html = data.HTML

	if variant != models.VariantB {
		return subject, senderName, html
	}

	switch data.ABType {
	case models.ABTypeSubject:
		subject = data.SubjectB
	case models.ABTypeSender:
		senderName = data.SenderNameB
	case models.ABTypeContent:
		html = data.HTMLB
	}
	return subject, senderName, html
}

// WinnerDueTime computes when the winner follow-up becomes due. A
// non-positive delay means "as soon as the next sweep runs".
func WinnerDueTime(base time.Time, unit models.DelayUnit, value int64) time.Time {
	if value <= 0 {
		return base
	}
	switch unit {
	case models.DelayUnitHour:
		return base.Add(time.Duration(value) * time.Hour)
	case models.DelayUnitDay:
		return base.AddDate(0, 0, int(value))
	default:
		return base
	}
}

func excludeRecipients(recipients []models.Recipient, already map[string]struct{}) []models.Recipient {
	remaining := make([]models.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if _, ok := already[r.ID]; ok {
			continue
		}
		remaining = append(remaining, r)
	}
	return remaining
}

func (e *Executor) logResult(campaignID, phase string, result Result) {
	e.logger.Info("send phase finished",
		zap.String("campaign_id", campaignID),
		zap.String("phase", phase),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
}
