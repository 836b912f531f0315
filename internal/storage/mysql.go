package storage

import (
	"database/sql"
	"fmt"
	"time"

	"booking-engine/internal/config"
	"booking-engine/internal/logger"
	"booking-engine/internal/models"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	// Test connection
	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MySQLStore{
		db:  db,
		log: log,
	}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established and tables initialized")
	return store, nil
}

func (s *MySQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating booking engine tables if not exist")

	queries := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			listing_id VARCHAR(36) PRIMARY KEY,
			creator_id VARCHAR(36) NOT NULL,
			title VARCHAR(255) NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			capacity INT NOT NULL DEFAULT 1,
			event_tier VARCHAR(4) NOT NULL DEFAULT 'c',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_listings_creator (creator_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS bookings (
			booking_id VARCHAR(36) PRIMARY KEY,
			listing_id VARCHAR(36) NOT NULL,
			creator_id VARCHAR(36) NOT NULL,
			customer_id VARCHAR(36) NOT NULL,
			price DECIMAL(10,2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			scheduled_at TIMESTAMP NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_bookings_listing_status (listing_id, status),
			INDEX idx_bookings_creator (creator_id),
			INDEX idx_bookings_updated (updated_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS booking_queue (
			entry_id VARCHAR(36) PRIMARY KEY,
			listing_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			position INT NOT NULL,
			auto_booked BOOLEAN NOT NULL DEFAULT FALSE,
			auto_booked_at TIMESTAMP NULL,
			active BOOLEAN NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_queue_listing_user (listing_id, user_id, active),
			INDEX idx_queue_listing_position (listing_id, auto_booked, position)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			tier VARCHAR(20) NOT NULL DEFAULT 'silver',
			payout_account VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS payouts (
			payout_id VARCHAR(36) PRIMARY KEY,
			creator_id VARCHAR(36) NOT NULL,
			gross DECIMAL(10,2) NOT NULL,
			commission DECIMAL(10,2) NOT NULL,
			net DECIMAL(10,2) NOT NULL,
			fee DECIMAL(10,2) NOT NULL DEFAULT 0,
			payout_type VARCHAR(10) NOT NULL,
			provider_id VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_payouts_creator_type (creator_id, payout_type, created_at),
			INDEX idx_payouts_provider (provider_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "mysql", "Booking engine tables ready")
	return nil
}

func (s *MySQLStore) SaveListing(listing *models.Listing) error {
	s.log.LogDatabase("INSERT", "listings", fmt.Sprintf("Saving listing %s", listing.ListingID))

	query := `
    INSERT INTO listings (listing_id, creator_id, title, price, capacity, event_tier, active, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err := s.db.Exec(query,
		listing.ListingID, listing.CreatorID, listing.Title, listing.Price,
		listing.Capacity, listing.EventTier, listing.Active, listing.CreatedAt,
	)

	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save listing %s: %s", listing.ListingID, err.Error()))
		return fmt.Errorf("failed to save listing: %w", err)
	}

	return nil
}

func (s *MySQLStore) GetListing(id string) (*models.Listing, error) {
	s.log.LogDatabase("SELECT", "listings", fmt.Sprintf("Fetching listing %s", id))

	query := `
    SELECT listing_id, creator_id, title, price, capacity, event_tier, active, created_at
    FROM listings WHERE listing_id = ?
    `

	listing := &models.Listing{}
	err := s.db.QueryRow(query, id).Scan(
		&listing.ListingID, &listing.CreatorID, &listing.Title, &listing.Price,
		&listing.Capacity, &listing.EventTier, &listing.Active, &listing.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.log.LogDatabase("NOT_FOUND", "listings", fmt.Sprintf("Listing %s not found", id))
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get listing %s: %s", id, err.Error()))
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listing, nil
}

func (s *MySQLStore) SaveBooking(booking *models.Booking) error {
	s.log.LogDatabase("INSERT", "bookings", fmt.Sprintf("Saving booking %s", booking.BookingID))

	query := `
    INSERT INTO bookings (booking_id, listing_id, creator_id, customer_id, price, status, scheduled_at, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err := s.db.Exec(query,
		booking.BookingID, booking.ListingID, booking.CreatorID, booking.CustomerID,
		booking.Price, booking.Status, booking.ScheduledAt, booking.CreatedAt, booking.UpdatedAt,
	)

	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save booking %s: %s", booking.BookingID, err.Error()))
		return fmt.Errorf("failed to save booking: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "bookings", fmt.Sprintf("Booking %s saved successfully", booking.BookingID))
	return nil
}

func (s *MySQLStore) GetBooking(id string) (*models.Booking, error) {
	s.log.LogDatabase("SELECT", "bookings", fmt.Sprintf("Fetching booking %s", id))

	query := `
    SELECT booking_id, listing_id, creator_id, customer_id, price, status, scheduled_at, created_at, updated_at
    FROM bookings WHERE booking_id = ?
    `

	booking := &models.Booking{}
	err := s.db.QueryRow(query, id).Scan(
		&booking.BookingID, &booking.ListingID, &booking.CreatorID, &booking.CustomerID,
		&booking.Price, &booking.Status, &booking.ScheduledAt, &booking.CreatedAt, &booking.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.log.LogDatabase("NOT_FOUND", "bookings", fmt.Sprintf("Booking %s not found", id))
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get booking %s: %s", id, err.Error()))
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return booking, nil
}

func (s *MySQLStore) UpdateBooking(booking *models.Booking) error {
	s.log.LogDatabase("UPDATE", "bookings", fmt.Sprintf("Updating booking %s", booking.BookingID))

	query := `
    UPDATE bookings SET status = ?, scheduled_at = ?, updated_at = ?
    WHERE booking_id = ?
    `

	_, err := s.db.Exec(query,
		booking.Status, booking.ScheduledAt, booking.UpdatedAt, booking.BookingID,
	)

	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to update booking %s: %s", booking.BookingID, err.Error()))
		return fmt.Errorf("failed to update booking: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "bookings", fmt.Sprintf("Booking %s updated successfully", booking.BookingID))
	return nil
}

// CountActiveBookings counts pending and confirmed bookings for a listing.
// Completed and canceled bookings never count toward capacity.
func (s *MySQLStore) CountActiveBookings(listingID string) (int, error) {
	query := `
    SELECT COUNT(*) FROM bookings
    WHERE listing_id = ? AND status IN ('pending', 'confirmed')
    `

	var count int
	if err := s.db.QueryRow(query, listingID).Scan(&count); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to count active bookings for %s: %s", listingID, err.Error()))
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}

	return count, nil
}

// CreatorEarningsSince aggregates completed-booking listing prices per creator
// in a single set-based query.
func (s *MySQLStore) CreatorEarningsSince(since time.Time) (map[string]float64, error) {
	s.log.LogDatabase("SELECT", "bookings", fmt.Sprintf("Aggregating creator earnings since %s", since.Format(time.RFC3339)))

	query := `
    SELECT b.creator_id, SUM(l.price)
    FROM bookings b
    JOIN listings l ON l.listing_id = b.listing_id
    WHERE b.status = 'completed' AND b.updated_at >= ?
    GROUP BY b.creator_id
    `

	rows, err := s.db.Query(query, since)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to aggregate earnings: %s", err.Error()))
		return nil, fmt.Errorf("failed to aggregate earnings: %w", err)
	}
	defer rows.Close()

	earnings := make(map[string]float64)
	for rows.Next() {
		var creatorID string
		var total float64
		if err := rows.Scan(&creatorID, &total); err != nil {
			s.log.Error("DATABASE", fmt.Sprintf("Failed to scan earnings row: %s", err.Error()))
			return nil, fmt.Errorf("failed to scan earnings: %w", err)
		}
		earnings[creatorID] = total
	}

	if err = rows.Err(); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Row iteration error: %s", err.Error()))
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "bookings", fmt.Sprintf("Aggregated earnings for %d creators", len(earnings)))
	return earnings, nil
}

func (s *MySQLStore) SaveQueueEntry(entry *models.QueueEntry) error {
	s.log.LogDatabase("INSERT", "booking_queue", fmt.Sprintf("Saving queue entry %s", entry.EntryID))

	query := `
    INSERT INTO booking_queue (entry_id, listing_id, user_id, position, auto_booked, auto_booked_at, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	_, err := s.db.Exec(query,
		entry.EntryID, entry.ListingID, entry.UserID, entry.Position,
		entry.AutoBooked, entry.AutoBookedAt, entry.CreatedAt,
	)

	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save queue entry %s: %s", entry.EntryID, err.Error()))
		return fmt.Errorf("failed to save queue entry: %w", err)
	}

	return nil
}

func (s *MySQLStore) GetQueueEntry(listingID, userID string) (*models.QueueEntry, error) {
	query := `
    SELECT entry_id, listing_id, user_id, position, auto_booked, auto_booked_at, created_at
    FROM booking_queue
    WHERE listing_id = ? AND user_id = ? AND auto_booked = FALSE
    `

	entry := &models.QueueEntry{}
	err := s.db.QueryRow(query, listingID, userID).Scan(
		&entry.EntryID, &entry.ListingID, &entry.UserID, &entry.Position,
		&entry.AutoBooked, &entry.AutoBookedAt, &entry.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get queue entry for %s/%s: %s", listingID, userID, err.Error()))
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return entry, nil
}

// ListQueueEntries returns the active (non-auto-booked) wait-list for a
// listing ordered by position ascending.
func (s *MySQLStore) ListQueueEntries(listingID string) ([]*models.QueueEntry, error) {
	query := `
    SELECT entry_id, listing_id, user_id, position, auto_booked, auto_booked_at, created_at
    FROM booking_queue
    WHERE listing_id = ? AND auto_booked = FALSE
    ORDER BY position ASC
    `

	rows, err := s.db.Query(query, listingID)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list queue entries for %s: %s", listingID, err.Error()))
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		entry := &models.QueueEntry{}
		err := rows.Scan(
			&entry.EntryID, &entry.ListingID, &entry.UserID, &entry.Position,
			&entry.AutoBooked, &entry.AutoBookedAt, &entry.CreatedAt,
		)
		if err != nil {
			s.log.Error("DATABASE", fmt.Sprintf("Failed to scan queue entry row: %s", err.Error()))
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Row iteration error: %s", err.Error()))
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// UpdateQueuePositions reassigns positions for a listing inside one
// transaction so a shift-down or renumbering is applied atomically.
func (s *MySQLStore) UpdateQueuePositions(listingID string, positions map[string]int) error {
	s.log.LogDatabase("UPDATE", "booking_queue", fmt.Sprintf("Reassigning %d positions for listing %s", len(positions), listingID))

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `UPDATE booking_queue SET position = ? WHERE entry_id = ? AND listing_id = ?`
	for entryID, position := range positions {
		if _, err := tx.Exec(query, position, entryID, listingID); err != nil {
			tx.Rollback()
			s.log.Error("DATABASE", fmt.Sprintf("Failed to update position for entry %s: %s", entryID, err.Error()))
			return fmt.Errorf("failed to update queue position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit position update: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "booking_queue", fmt.Sprintf("Positions reassigned for listing %s", listingID))
	return nil
}

// MarkQueueEntryAutoBooked retires an entry after promotion. The active
// column goes to NULL so the retired row drops out of the per-user unique
// key and the user can wait-list the same listing again later.
func (s *MySQLStore) MarkQueueEntryAutoBooked(entryID string, at time.Time) error {
	s.log.LogDatabase("UPDATE", "booking_queue", fmt.Sprintf("Marking queue entry %s auto-booked", entryID))

	query := `UPDATE booking_queue SET auto_booked = TRUE, auto_booked_at = ?, active = NULL WHERE entry_id = ?`

	_, err := s.db.Exec(query, at, entryID)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to mark queue entry %s auto-booked: %s", entryID, err.Error()))
		return fmt.Errorf("failed to mark queue entry auto-booked: %w", err)
	}

	return nil
}

func (s *MySQLStore) GetProfile(userID string) (*models.Profile, error) {
	query := `
    SELECT user_id, email, tier, payout_account, created_at
    FROM profiles WHERE user_id = ?
    `

	profile := &models.Profile{}
	err := s.db.QueryRow(query, userID).Scan(
		&profile.UserID, &profile.Email, &profile.Tier, &profile.PayoutAccount, &profile.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.log.LogDatabase("NOT_FOUND", "profiles", fmt.Sprintf("Profile %s not found", userID))
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get profile %s: %s", userID, err.Error()))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

func (s *MySQLStore) SavePayout(payout *models.Payout) error {
	s.log.LogDatabase("INSERT", "payouts", fmt.Sprintf("Saving payout %s", payout.PayoutID))

	query := `
    INSERT INTO payouts (payout_id, creator_id, gross, commission, net, fee, payout_type, provider_id, status, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err := s.db.Exec(query,
		payout.PayoutID, payout.CreatorID, payout.Gross, payout.Commission, payout.Net,
		payout.Fee, payout.PayoutType, payout.ProviderID, payout.Status,
		payout.CreatedAt, payout.UpdatedAt,
	)

	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save payout %s: %s", payout.PayoutID, err.Error()))
		return fmt.Errorf("failed to save payout: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "payouts", fmt.Sprintf("Payout %s saved successfully", payout.PayoutID))
	return nil
}

func (s *MySQLStore) GetPayoutByProviderID(providerID string) (*models.Payout, error) {
	query := `
    SELECT payout_id, creator_id, gross, commission, net, fee, payout_type, provider_id, status, created_at, updated_at
    FROM payouts WHERE provider_id = ?
    `

	payout := &models.Payout{}
	err := s.db.QueryRow(query, providerID).Scan(
		&payout.PayoutID, &payout.CreatorID, &payout.Gross, &payout.Commission, &payout.Net,
		&payout.Fee, &payout.PayoutType, &payout.ProviderID, &payout.Status,
		&payout.CreatedAt, &payout.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get payout by provider id %s: %s", providerID, err.Error()))
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}

	return payout, nil
}

func (s *MySQLStore) UpdatePayoutStatus(payoutID string, status models.PayoutStatus) error {
	s.log.LogDatabase("UPDATE", "payouts", fmt.Sprintf("Updating payout %s status to %s", payoutID, status))

	query := `UPDATE payouts SET status = ?, updated_at = ? WHERE payout_id = ?`

	_, err := s.db.Exec(query, status, time.Now(), payoutID)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to update payout %s: %s", payoutID, err.Error()))
		return fmt.Errorf("failed to update payout status: %w", err)
	}

	return nil
}

func (s *MySQLStore) CountInstantPayoutsSince(creatorID string, since time.Time) (int, error) {
	query := `
    SELECT COUNT(*) FROM payouts
    WHERE creator_id = ? AND payout_type = 'instant' AND created_at >= ?
    `

	var count int
	if err := s.db.QueryRow(query, creatorID, since).Scan(&count); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to count instant payouts for %s: %s", creatorID, err.Error()))
		return 0, fmt.Errorf("failed to count instant payouts: %w", err)
	}

	return count, nil
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}

func (s *MySQLStore) HealthCheck() error {
	return s.db.Ping()
}
